package integration

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"xpkg/internal/app"
	"xpkg/internal/types"
)

type artifact struct {
	name      string
	version   string
	essential bool
	depends   []string
	files     map[string]string
}

// pool is a repository directory holding index.yaml and the artifacts
// it describes.
type pool struct {
	t     *testing.T
	dir   string
	index types.RepoIndexFile
}

func newPool(t *testing.T) *pool {
	return &pool{t: t, dir: t.TempDir(), index: types.RepoIndexFile{Packages: map[string][]types.RepoPackageVersion{}}}
}

func (p *pool) add(a artifact) {
	p.t.Helper()
	data := buildArtifact(p.t, a.files)
	filename := a.name + "-" + a.version + ".tar.gz"
	require.NoError(p.t, os.WriteFile(filepath.Join(p.dir, filename), data, 0o644))
	sum := sha256.Sum256(data)
	installed := int64(0)
	for _, body := range a.files {
		installed += int64(len(body))
	}
	p.index.Packages[a.name] = append(p.index.Packages[a.name], types.RepoPackageVersion{
		Version:       a.version,
		Filename:      filename,
		SHA256:        hex.EncodeToString(sum[:]),
		SizeDownload:  int64(len(data)),
		SizeInstalled: installed,
		Essential:     a.essential,
		Depends:       a.depends,
	})
	p.save()
}

func (p *pool) corrupt(name string, version string) {
	p.t.Helper()
	path := filepath.Join(p.dir, name+"-"+version+".tar.gz")
	require.NoError(p.t, os.WriteFile(path, []byte("tampered"), 0o644))
}

func (p *pool) save() {
	p.t.Helper()
	data, err := yaml.Marshal(p.index)
	require.NoError(p.t, err)
	require.NoError(p.t, os.WriteFile(filepath.Join(p.dir, "index.yaml"), data, 0o644))
}

func buildArtifact(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		mode := int64(0o644)
		if name == "INSTALL" {
			mode = 0o755
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: "./" + name, Mode: mode, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newService(t *testing.T, root string, repo *pool, answer string) (app.Service, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	service := app.NewService(app.Config{
		Root:         root,
		Repositories: []string{repo.dir},
		In:           strings.NewReader(answer),
		Out:          out,
	})
	return service, out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestInstallUpdateLifecycle(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "libbar", version: "1.0", files: map[string]string{
		"usr/lib/libbar.so": "bar v1",
	}})
	repo.add(artifact{name: "foo", version: "1.0", depends: []string{"libbar>=1.0"}, files: map[string]string{
		"usr/bin/foo": "foo v1",
		"INSTALL":     "#!/bin/sh\necho \"$1 $2 $3\" >> var/log/foo-configure.log\n",
	}})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "var", "log"), 0o755))

	service, out := newService(t, root, repo, "y\n")
	result, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo"})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeInstalled, result.Outcome)
	assert.Equal(t, []string{"libbar", "foo"}, result.Packages)
	assert.Contains(t, out.String(), "The following new packages will be installed:")
	assert.Contains(t, out.String(), "  libbar-1.0 foo-1.0 ")
	assert.Equal(t, "foo v1", readFile(t, filepath.Join(root, "usr", "bin", "foo")))
	assert.Equal(t, "post foo 1.0\n", readFile(t, filepath.Join(root, "var", "log", "foo-configure.log")))

	list, err := service.ListInstalled(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Packages, 2)
	want := types.InstalledPackage{
		Name:    "foo",
		Version: "1.0",
		State:   types.PackageStateConfigured,
		Depends: []string{"libbar>=1.0"},
	}
	got := list.Packages[0]
	assert.False(t, got.InstalledAt.IsZero())
	got.InstalledAt = time.Time{}
	assert.Equal(t, want, got)
	assert.True(t, list.Packages[1].Automatic)

	// A newer foo drops a file; the clean replace must remove it.
	repo.add(artifact{name: "foo", version: "2.0", depends: []string{"libbar>=1.0"}, files: map[string]string{
		"usr/bin/foo2": "foo v2",
	}})
	service, _ = newService(t, root, repo, "")
	result, err = service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo", Update: true, Force: true})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeUpdated, result.Outcome)
	assert.NoFileExists(t, filepath.Join(root, "usr", "bin", "foo"))
	assert.Equal(t, "foo v2", readFile(t, filepath.Join(root, "usr", "bin", "foo2")))

	service, out = newService(t, root, repo, "")
	result, err = service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo", Update: true})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeUpToDate, result.Outcome)
	assert.Equal(t, "Package 'foo' is up to date.\n", out.String())
}

func TestEssentialUpgradeKeepsFilesInPlace(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "xpkg", version: "1.0", essential: true, files: map[string]string{
		"usr/bin/xpkg":  "v1",
		"usr/share/old": "legacy",
	}})

	service, _ := newService(t, root, repo, "")
	_, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "xpkg", Force: true})
	require.NoError(t, err)

	repo.add(artifact{name: "xpkg", version: "1.1", essential: true, files: map[string]string{
		"usr/bin/xpkg": "v1.1",
	}})
	service, _ = newService(t, root, repo, "")
	result, err := service.AutoUpdateAll(t.Context(), app.AutoUpdateRequest{Force: true})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeUpdated, result.Outcome)
	assert.Equal(t, "v1.1", readFile(t, filepath.Join(root, "usr", "bin", "xpkg")))
	// Overwrite in place never removes the previous file set.
	assert.FileExists(t, filepath.Join(root, "usr", "share", "old"))
}

func TestHashMismatchLeavesSystemUntouched(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "libbar", version: "1.0", files: map[string]string{"usr/lib/libbar.so": "bar"}})
	repo.add(artifact{name: "foo", version: "1.0", depends: []string{"libbar"}, files: map[string]string{"usr/bin/foo": "foo"}})
	repo.corrupt("foo", "1.0")

	service, out := newService(t, root, repo, "yes\n")
	_, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeDataLoss, errbuilder.CodeOf(err))
	assert.Contains(t, out.String(), "Hash mismatch for foo-1.0.tar.gz, exiting.")
	assert.NoFileExists(t, filepath.Join(root, "usr", "lib", "libbar.so"))

	list, err := service.ListInstalled(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list.Packages)
}

func TestDeclinedInstallChangesNothing(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "foo", version: "1.0", files: map[string]string{"usr/bin/foo": "foo"}})

	service, out := newService(t, root, repo, "n\n")
	result, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo"})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeAborted, result.Outcome)
	assert.Contains(t, out.String(), "Do you want to continue?")
	assert.Contains(t, out.String(), "Aborting!")
	assert.NoFileExists(t, filepath.Join(root, "usr", "bin", "foo"))
}

func TestMissingDependencyReported(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "libX", version: "1.0", files: map[string]string{"usr/lib/libX.so": "x"}})
	repo.add(artifact{name: "foo", version: "1.0", depends: []string{"libX>=2.0"}, files: map[string]string{"usr/bin/foo": "foo"}})

	service, out := newService(t, root, repo, "")
	_, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo", Force: true})
	require.Error(t, err)
	assert.Equal(t, "Unable to locate some required packages for foo:\n  * Missing binary package for: libX >= 2.0\n", out.String())
	assert.NoFileExists(t, filepath.Join(root, "usr", "bin", "foo"))
}

func TestAutoUpdateNothingToDo(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "foo", version: "1.0", files: map[string]string{"usr/bin/foo": "foo"}})

	service, _ := newService(t, root, repo, "")
	_, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo", Force: true})
	require.NoError(t, err)

	service, out := newService(t, root, repo, "")
	result, err := service.AutoUpdateAll(t.Context(), app.AutoUpdateRequest{})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeUpToDate, result.Outcome)
	assert.Equal(t, "All packages are up-to-date.\n", out.String())
}

func TestRerunAfterKilledRunTakesOverStaleLock(t *testing.T) {
	root := t.TempDir()
	repo := newPool(t)
	repo.add(artifact{name: "foo", version: "1.0", files: map[string]string{"usr/bin/foo": "foo"}})

	lockPath := filepath.Join(app.DefaultDBDir(root), "xpkg.lock")
	require.NoError(t, os.MkdirAll(filepath.Dir(lockPath), 0o755))
	require.NoError(t, os.WriteFile(lockPath, []byte("1073741824\n"), 0o644))

	service, _ := newService(t, root, repo, "")
	result, err := service.InstallOrUpdate(t.Context(), app.InstallRequest{Name: "foo", Force: true})
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeInstalled, result.Outcome)
	assert.Equal(t, "foo", readFile(t, filepath.Join(root, "usr", "bin", "foo")))
	assert.NoFileExists(t, lockPath)
}
