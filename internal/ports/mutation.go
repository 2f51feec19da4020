package ports

import (
	"context"
	"errors"

	"xpkg/internal/types"
)

// ErrHashMismatch reports an artifact whose content hash differs from
// the repository index.
var ErrHashMismatch = errors.New("artifact hash mismatch")

type ArtifactVerifierPort interface {
	Verify(ctx context.Context, entry types.PackageEntry) error
}

type UnpackerPort interface {
	Unpack(ctx context.Context, entry types.PackageEntry, essential bool) error
}

type RemoverPort interface {
	Remove(ctx context.Context, name string, version string, updating bool) error
}

type ConfigurerPort interface {
	Configure(ctx context.Context, name string, version string) error
}
