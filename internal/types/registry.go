package types

// RegistryFile is the on-disk installed-package database.
type RegistryFile struct {
	Version  int                       `yaml:"version"`
	Packages map[string]RegistryRecord `yaml:"packages"`
}

type RegistryRecord struct {
	Version   string       `yaml:"version"`
	State     PackageState `yaml:"state"`
	Automatic bool         `yaml:"automatic,omitempty"`
	Essential bool         `yaml:"essential,omitempty"`
	Depends   []string     `yaml:"depends,omitempty"`

	// InstalledAt is an RFC 3339 timestamp, refreshed whenever a new
	// version is registered.
	InstalledAt string `yaml:"installed_at,omitempty"`
}
