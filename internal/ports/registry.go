package ports

import (
	"context"

	"xpkg/internal/types"
)

type RegistryPort interface {
	LookupInstalled(ctx context.Context, name string) (types.InstalledPackage, bool, error)
	ListInstalled(ctx context.Context) ([]types.InstalledPackage, error)
	Register(ctx context.Context, entry types.PackageEntry, isDependency bool) error
}

// StateTrackerPort reads and writes the persisted lifecycle tag of a
// package. A tag recorded for a different version reads as not-applied.
type StateTrackerPort interface {
	GetState(ctx context.Context, name string, version string) (types.PackageState, error)
	SetState(ctx context.Context, name string, version string, state types.PackageState) error
}
