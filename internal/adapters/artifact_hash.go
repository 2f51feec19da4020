package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// ArtifactHashAdapter verifies a package artifact against the sha256
// recorded in its repository index.
type ArtifactHashAdapter struct{}

func NewArtifactHashAdapter() ArtifactHashAdapter {
	return ArtifactHashAdapter{}
}

func (a ArtifactHashAdapter) Verify(ctx context.Context, entry types.PackageEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(entry.SHA256) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no sha256 recorded for %s", entry.PkgVer()))
	}
	path := artifactPath(entry)
	got, err := fileSHA256(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, entry.SHA256) {
		return fmt.Errorf("%w: %s: expected %s, got %s", ports.ErrHashMismatch, entry.Filename, entry.SHA256, got)
	}
	return nil
}

func artifactPath(entry types.PackageEntry) string {
	return filepath.Join(entry.Repository, entry.Filename)
}

func fileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		code := errbuilder.CodeInternal
		if os.IsNotExist(err) {
			code = errbuilder.CodeNotFound
		}
		return "", errbuilder.New().
			WithCode(code).
			WithMsg(fmt.Sprintf("failed to open artifact %s", path)).
			WithCause(err)
	}
	defer file.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read artifact %s", path)).
			WithCause(err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

var _ ports.ArtifactVerifierPort = ArtifactHashAdapter{}
