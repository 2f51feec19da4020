package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// PoolResolver builds transaction sets from the repository pool: it
// picks the newest candidate of each package, walks its dependencies
// breadth-first and orders the result so dependencies come first.
type PoolResolver struct {
	RepoIndex ports.RepoIndexPort
	Registry  ports.RegistryPort
}

func NewPoolResolver(repoIndex ports.RepoIndexPort, registry ports.RegistryPort) PoolResolver {
	return PoolResolver{
		RepoIndex: repoIndex,
		Registry:  registry,
	}
}

func (r PoolResolver) ResolveInstall(ctx context.Context, name string) (types.TransactionSet, error) {
	if err := r.validate(); err != nil {
		return types.TransactionSet{}, err
	}
	cache := newVersionCache()
	candidates, err := r.RepoIndex.Candidates(name)
	if err != nil {
		return types.TransactionSet{}, err
	}
	if len(candidates) == 0 {
		return types.TransactionSet{}, fmt.Errorf("%w: %s", ports.ErrNotFound, name)
	}
	root := cache.newest(candidates)[0]
	root.IsDependency = false
	set, err := r.buildSet(ctx, cache, root)
	if err != nil {
		return types.TransactionSet{}, err
	}
	log.Ctx(ctx).Debug().Str("package", root.PkgVer()).Int("entries", len(set.Entries)).Msg("install resolved")
	return set, nil
}

func (r PoolResolver) ResolveUpgrade(ctx context.Context, installed types.InstalledPackage) (types.TransactionSet, error) {
	if err := r.validate(); err != nil {
		return types.TransactionSet{}, err
	}
	cache := newVersionCache()
	candidates, err := r.RepoIndex.Candidates(installed.Name)
	if err != nil {
		return types.TransactionSet{}, err
	}
	if len(candidates) == 0 {
		return types.TransactionSet{}, ports.ErrNoNewerVersion
	}
	best := cache.newest(candidates)[0]
	newer, err := IsNewer(best.Version, installed.Version)
	if err != nil {
		return types.TransactionSet{}, err
	}
	if !newer {
		return types.TransactionSet{}, ports.ErrNoNewerVersion
	}
	best.InstalledVersion = installed.Version
	best.IsDependency = installed.Automatic
	set, err := r.buildSet(ctx, cache, best)
	if err != nil {
		return types.TransactionSet{}, err
	}
	set.IsUpdate = true
	log.Ctx(ctx).Debug().Str("package", best.PkgVer()).Str("installed", installed.Version).Msg("upgrade resolved")
	return set, nil
}

// Sort orders entries so that every package follows the packages it
// depends on. Dependencies outside the set are ignored; ties are broken
// by name so the order is deterministic.
func (r PoolResolver) Sort(ctx context.Context, set types.TransactionSet) (types.TransactionSet, error) {
	sorted, err := sortEntries(set.Entries)
	if err != nil {
		return types.TransactionSet{}, err
	}
	set.Entries = sorted
	log.Ctx(ctx).Debug().Strs("order", set.Names()).Msg("transaction sorted")
	return set, nil
}

func (r PoolResolver) buildSet(ctx context.Context, cache *versionCache, root types.PackageEntry) (types.TransactionSet, error) {
	selected := map[string]types.PackageEntry{root.Name: root}
	order := []string{root.Name}
	missing := map[string]types.MissingDependency{}
	queue := []types.PackageEntry{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, raw := range current.Depends {
			constraint, err := ParseConstraint(raw, "depends:"+current.Name)
			if err != nil {
				return types.TransactionSet{}, err
			}
			if chosen, ok := selected[constraint.Name]; ok {
				ok, err := cache.satisfies(chosen.Version, constraint)
				if err != nil {
					return types.TransactionSet{}, err
				}
				if !ok {
					missing[constraint.Name] = types.MissingDependency{Name: constraint.Name, MinVersion: minimumVersion(constraint)}
				}
				continue
			}
			entry, found, err := r.pickDependency(ctx, cache, constraint)
			if err != nil {
				return types.TransactionSet{}, err
			}
			if !found {
				log.Ctx(ctx).Debug().Str("constraint", constraint.String()).Str("required_by", current.Name).Msg("dependency unsatisfied")
				missing[constraint.Name] = types.MissingDependency{Name: constraint.Name, MinVersion: minimumVersion(constraint)}
				continue
			}
			if entry.Name == "" {
				continue
			}
			selected[entry.Name] = entry
			order = append(order, entry.Name)
			queue = append(queue, entry)
		}
	}

	entries := make([]types.PackageEntry, 0, len(order))
	for _, name := range order {
		entries = append(entries, selected[name])
	}
	sorted, err := sortEntries(entries)
	if err != nil {
		return types.TransactionSet{}, err
	}
	return types.TransactionSet{
		Entries:    sorted,
		Mode:       types.TransactionModeSingleTarget,
		OriginName: root.Name,
		Missing:    sortedMissing(missing),
	}, nil
}

// pickDependency returns the newest candidate satisfying constraint. An
// installed version that already satisfies it yields a zero entry with
// found set, meaning nothing has to be added.
func (r PoolResolver) pickDependency(ctx context.Context, cache *versionCache, constraint types.Constraint) (types.PackageEntry, bool, error) {
	installed, isInstalled, err := r.Registry.LookupInstalled(ctx, constraint.Name)
	if err != nil {
		return types.PackageEntry{}, false, err
	}
	if isInstalled {
		ok, err := cache.satisfies(installed.Version, constraint)
		if err != nil {
			return types.PackageEntry{}, false, err
		}
		if ok {
			return types.PackageEntry{}, true, nil
		}
	}
	candidates, err := r.RepoIndex.Candidates(constraint.Name)
	if err != nil {
		return types.PackageEntry{}, false, err
	}
	for _, candidate := range cache.newest(candidates) {
		ok, err := cache.satisfies(candidate.Version, constraint)
		if err != nil {
			return types.PackageEntry{}, false, err
		}
		if !ok {
			continue
		}
		candidate.IsDependency = true
		if isInstalled {
			candidate.InstalledVersion = installed.Version
			candidate.IsDependency = installed.Automatic
		}
		return candidate, true, nil
	}
	return types.PackageEntry{}, false, nil
}

func (r PoolResolver) validate() error {
	if r.RepoIndex == nil || r.Registry == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolver requires repo index and registry ports")
	}
	return nil
}

func sortEntries(entries []types.PackageEntry) ([]types.PackageEntry, error) {
	byName := make(map[string]types.PackageEntry, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, dup := byName[entry.Name]; dup {
			continue
		}
		byName[entry.Name] = entry
		names = append(names, entry.Name)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(names))
	out := make([]types.PackageEntry, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case done:
			return nil
		case visiting:
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("dependency cycle detected at %s", name))
		}
		marks[name] = visiting
		entry := byName[name]
		var deps []string
		for _, raw := range entry.Depends {
			constraint, err := ParseConstraint(raw, "depends:"+name)
			if err != nil {
				return err
			}
			if _, inSet := byName[constraint.Name]; inSet && constraint.Name != name {
				deps = append(deps, constraint.Name)
			}
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		marks[name] = done
		out = append(out, entry)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func sortedMissing(missing map[string]types.MissingDependency) []types.MissingDependency {
	if len(missing) == 0 {
		return nil
	}
	out := make([]types.MissingDependency, 0, len(missing))
	for _, dep := range missing {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

var _ ports.ResolverPort = PoolResolver{}
