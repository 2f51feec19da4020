package ports

import (
	"context"
	"errors"

	"xpkg/internal/types"
)

var (
	// ErrNotFound reports that a package exists in no configured
	// repository.
	ErrNotFound = errors.New("package not found in repository pool")
	// ErrNoNewerVersion reports that the installed version is the newest
	// available.
	ErrNoNewerVersion = errors.New("no newer version available")
)

// ResolverPort builds dependency-complete, topologically ordered
// transaction sets.
type ResolverPort interface {
	ResolveInstall(ctx context.Context, name string) (types.TransactionSet, error)
	ResolveUpgrade(ctx context.Context, installed types.InstalledPackage) (types.TransactionSet, error)
	Sort(ctx context.Context, set types.TransactionSet) (types.TransactionSet, error)
}

// RepoIndexPort exposes every available version of a package across the
// configured repositories.
type RepoIndexPort interface {
	Candidates(name string) ([]types.PackageEntry, error)
}
