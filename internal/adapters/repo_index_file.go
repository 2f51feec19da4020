package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

const repoIndexName = "index.yaml"

// RepoIndexFileAdapter reads index.yaml from each repository directory.
// Repositories are consulted in configuration order and every version
// they offer becomes a candidate.
type RepoIndexFileAdapter struct {
	Dirs   []string
	cached map[string][]types.PackageEntry
	loaded bool
}

func NewRepoIndexFileAdapter(dirs []string) *RepoIndexFileAdapter {
	return &RepoIndexFileAdapter{Dirs: dirs}
}

func (a *RepoIndexFileAdapter) Candidates(name string) ([]types.PackageEntry, error) {
	pool, err := a.load()
	if err != nil {
		return nil, err
	}
	return append([]types.PackageEntry(nil), pool[strings.TrimSpace(name)]...), nil
}

func (a *RepoIndexFileAdapter) load() (map[string][]types.PackageEntry, error) {
	if a.loaded {
		return a.cached, nil
	}
	if len(a.Dirs) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no repositories configured")
	}
	pool := map[string][]types.PackageEntry{}
	for _, dir := range a.Dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		idx, err := readRepoIndex(filepath.Join(dir, repoIndexName))
		if err != nil {
			return nil, err
		}
		for name, versions := range idx.Packages {
			for _, v := range versions {
				if strings.TrimSpace(v.Version) == "" {
					continue
				}
				if v.SizeDownload < 0 || v.SizeInstalled < 0 {
					return nil, errbuilder.New().
						WithCode(errbuilder.CodeInvalidArgument).
						WithMsg(fmt.Sprintf("negative size for %s-%s in %s", name, v.Version, dir))
				}
				pool[name] = append(pool[name], types.PackageEntry{
					Name:          name,
					Version:       v.Version,
					Repository:    dir,
					Filename:      v.Filename,
					SHA256:        strings.ToLower(strings.TrimSpace(v.SHA256)),
					SizeDownload:  v.SizeDownload,
					SizeInstalled: v.SizeInstalled,
					Essential:     v.Essential,
					Depends:       append([]string(nil), v.Depends...),
					State:         types.PackageStateNotApplied,
				})
			}
		}
	}
	a.cached = pool
	a.loaded = true
	return pool, nil
}

func readRepoIndex(path string) (types.RepoIndexFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RepoIndexFile{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("repo index file not found").
			WithCause(err)
	}
	var idx types.RepoIndexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return types.RepoIndexFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid repo index format").
			WithCause(err)
	}
	if idx.Packages == nil {
		idx.Packages = map[string][]types.RepoPackageVersion{}
	}
	return idx, nil
}

var _ ports.RepoIndexPort = (*RepoIndexFileAdapter)(nil)
