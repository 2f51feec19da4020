package types

// MissingDependency is a dependency the resolver could not satisfy from
// any repository.
type MissingDependency struct {
	Name       string
	MinVersion string
}

// TransactionSet is an ordered, dependency-sorted batch of packages
// consumed by exactly one executor run.
type TransactionSet struct {
	Entries    []PackageEntry
	Mode       TransactionMode
	OriginName string
	Force      bool
	IsUpdate   bool
	Missing    []MissingDependency
}

func (s TransactionSet) Empty() bool {
	return len(s.Entries) == 0
}

func (s TransactionSet) Names() []string {
	names := make([]string, 0, len(s.Entries))
	for _, entry := range s.Entries {
		names = append(names, entry.Name)
	}
	return names
}
