package adapters

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// TarUnpackerAdapter extracts .tar and .tar.gz artifacts beneath Root and
// records the files it placed in the package database.
type TarUnpackerAdapter struct {
	Root  string
	DBDir string
}

func NewTarUnpackerAdapter(root string, dbDir string) TarUnpackerAdapter {
	return TarUnpackerAdapter{Root: root, DBDir: dbDir}
}

func (a TarUnpackerAdapter) Unpack(ctx context.Context, entry types.PackageEntry, essential bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.Open(artifactPath(entry))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("failed to open artifact %s", entry.Filename)).
			WithCause(err)
	}
	defer file.Close()

	var reader io.Reader = file
	if isGzipArtifact(entry.Filename) {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeDataLoss).
				WithMsg(fmt.Sprintf("invalid gzip artifact %s", entry.Filename)).
				WithCause(err)
		}
		defer gz.Close()
		reader = gz
	}

	// A script left by the previous version must not run for this one.
	if err := os.Remove(scriptPath(a.DBDir, entry.Name)); err != nil && !os.IsNotExist(err) {
		return unpackError(installScript, err)
	}

	owned := map[string]struct{}{}
	archive := tar.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := archive.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeDataLoss).
				WithMsg(fmt.Sprintf("invalid tar artifact %s", entry.Filename)).
				WithCause(err)
		}
		name := path.Clean(strings.TrimPrefix(header.Name, "./"))
		if name == "." || name == "" {
			continue
		}
		if name == installScript {
			if err := writeFile(scriptPath(a.DBDir, entry.Name), archive, 0o755, false); err != nil {
				return err
			}
			continue
		}
		target, err := safeJoin(a.Root, name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(header)); err != nil {
				return unpackError(name, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, archive, os.FileMode(header.Mode).Perm(), essential); err != nil {
				return err
			}
			owned[name] = struct{}{}
		case tar.TypeSymlink:
			if err := placeSymlink(target, header.Linkname); err != nil {
				return unpackError(name, err)
			}
			owned[name] = struct{}{}
		default:
			log.Ctx(ctx).Debug().Str("package", entry.PkgVer()).Str("member", name).Msg("unsupported tar member skipped")
		}
	}

	if err := a.writeFilesList(entry.Name, owned); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("package", entry.PkgVer()).Int("files", len(owned)).Bool("essential", essential).Msg("artifact unpacked")
	return nil
}

func (a TarUnpackerAdapter) writeFilesList(name string, owned map[string]struct{}) error {
	files := make([]string, 0, len(owned))
	for file := range owned {
		files = append(files, file)
	}
	sort.Strings(files)
	listPath := filesListPath(a.DBDir, name)
	if err := os.MkdirAll(filepath.Dir(listPath), 0o755); err != nil {
		return unpackError(listPath, err)
	}
	out, err := os.Create(listPath)
	if err != nil {
		return unpackError(listPath, err)
	}
	writer := bufio.NewWriter(out)
	for _, file := range files {
		fmt.Fprintln(writer, file)
	}
	if err := writer.Flush(); err != nil {
		out.Close()
		return unpackError(listPath, err)
	}
	if err := out.Close(); err != nil {
		return unpackError(listPath, err)
	}
	return nil
}

// writeFile copies src to target. With replace set the content goes to a
// sibling temp file first and is renamed over target, so an existing
// file stays present until the new one is complete.
func writeFile(target string, src io.Reader, mode os.FileMode, replace bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return unpackError(target, err)
	}
	if mode == 0 {
		mode = 0o644
	}
	dest := target
	if replace {
		dest = target + ".xpkg-new"
	}
	if err := dropSymlink(dest); err != nil {
		return unpackError(target, err)
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return unpackError(target, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return unpackError(target, err)
	}
	if err := out.Close(); err != nil {
		return unpackError(target, err)
	}
	if replace {
		if err := os.Rename(dest, target); err != nil {
			_ = os.Remove(dest)
			return unpackError(target, err)
		}
	}
	return nil
}

// dropSymlink removes p when it is a symlink so that a write lands on a
// fresh file instead of the link's target.
func dropSymlink(p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	return os.Remove(p)
}

func placeSymlink(target string, linkname string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(linkname, target)
}

func dirMode(header *tar.Header) os.FileMode {
	mode := os.FileMode(header.Mode).Perm()
	if mode == 0 {
		return 0o755
	}
	return mode
}

func isGzipArtifact(filename string) bool {
	return strings.HasSuffix(filename, ".tar.gz") || strings.HasSuffix(filename, ".tgz")
}

func unpackError(name string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to extract %s", name)).
		WithCause(err)
}

var _ ports.UnpackerPort = TarUnpackerAdapter{}
