package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// safeJoin resolves rel beneath root and rejects paths escaping it, either
// lexically or through a symlink in one of the parent directories. The
// final component is not followed, so a symlink owned by a package can
// itself be replaced or removed.
func safeJoin(root string, rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(rel, "./")))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", escapeError(rel)
	}
	target := filepath.Join(root, cleaned)

	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	parent, err := resolveExistingPath(filepath.Dir(target))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to resolve %s", rel)).
			WithCause(err)
	}
	if !within(realRoot, parent) {
		return "", escapeError(rel)
	}
	return target, nil
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid target root %s", root)).
			WithCause(err)
	}
	resolved, err := resolveExistingPath(abs)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to resolve target root %s", root)).
			WithCause(err)
	}
	return resolved, nil
}

// resolveExistingPath follows symlinks along the longest existing prefix
// of p and appends the part that does not exist yet.
func resolveExistingPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	dir := filepath.Dir(abs)
	if dir == abs {
		return abs, nil
	}
	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, filepath.Base(abs)), nil
}

func within(root string, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func escapeError(rel string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("path %q escapes the target root", rel))
}
