package adapters

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

const registryFormatVersion = 1

// RegistryFileAdapter keeps the installed-package database in a single
// YAML file under DBDir. Every call re-reads the file and every mutation
// rewrites it atomically, so the lifecycle tags survive a crash between
// two steps of a transaction.
type RegistryFileAdapter struct {
	Root  string
	DBDir string
	Clock func() time.Time
}

func NewRegistryFileAdapter(root string, dbDir string) RegistryFileAdapter {
	return RegistryFileAdapter{Root: root, DBDir: dbDir, Clock: time.Now}
}

func (a RegistryFileAdapter) LookupInstalled(ctx context.Context, name string) (types.InstalledPackage, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.InstalledPackage{}, false, err
	}
	reg, err := a.load()
	if err != nil {
		return types.InstalledPackage{}, false, err
	}
	record, ok := reg.Packages[name]
	if !ok {
		return types.InstalledPackage{}, false, nil
	}
	return installedFromRecord(name, record), true, nil
}

func (a RegistryFileAdapter) ListInstalled(ctx context.Context) ([]types.InstalledPackage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reg, err := a.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(reg.Packages))
	for name := range reg.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]types.InstalledPackage, 0, len(names))
	for _, name := range names {
		out = append(out, installedFromRecord(name, reg.Packages[name]))
	}
	return out, nil
}

func (a RegistryFileAdapter) Register(ctx context.Context, entry types.PackageEntry, isDependency bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(entry.Name) == "" || strings.TrimSpace(entry.Version) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name and version are required")
	}
	reg, err := a.load()
	if err != nil {
		return err
	}
	record := reg.Packages[entry.Name]
	if record.Version != entry.Version {
		record.State = types.PackageStateNotApplied
		record.InstalledAt = a.now().Format(time.RFC3339)
	}
	record.Version = entry.Version
	record.Automatic = isDependency
	record.Essential = entry.Essential
	record.Depends = append([]string(nil), entry.Depends...)
	reg.Packages[entry.Name] = record
	return a.save(reg)
}

func (a RegistryFileAdapter) GetState(ctx context.Context, name string, version string) (types.PackageState, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reg, err := a.load()
	if err != nil {
		return "", err
	}
	record, ok := reg.Packages[name]
	if !ok || record.Version != version {
		return types.PackageStateNotApplied, nil
	}
	if record.State == "" {
		return types.PackageStateNotApplied, nil
	}
	if !record.State.Valid() {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeDataLoss).
			WithMsg(fmt.Sprintf("unknown state %q recorded for %s", record.State, name))
	}
	return record.State, nil
}

func (a RegistryFileAdapter) SetState(ctx context.Context, name string, version string, state types.PackageState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !state.Valid() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package state %q", state))
	}
	reg, err := a.load()
	if err != nil {
		return err
	}
	record, ok := reg.Packages[name]
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package %s is not registered", name))
	}
	if record.Version != version {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s is registered as %s, not %s", name, record.Version, version))
	}
	if state.Rank() < record.State.Rank() {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("refusing to move %s-%s from %s back to %s", name, version, record.State, state))
	}
	record.State = state
	reg.Packages[name] = record
	return a.save(reg)
}

// Remove deletes every file owned by the package, its script and its
// registry record.
func (a RegistryFileAdapter) Remove(ctx context.Context, name string, version string, updating bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reg, err := a.load()
	if err != nil {
		return err
	}
	record, ok := reg.Packages[name]
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package %s is not installed", name))
	}
	if record.Version != version {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s is installed as %s, not %s", name, record.Version, version))
	}
	files, err := readFilesList(filesListPath(a.DBDir, name))
	if err != nil {
		return err
	}
	for _, rel := range files {
		target, err := safeJoin(a.Root, rel)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to remove %s", rel)).
				WithCause(err)
		}
	}
	for _, path := range []string{filesListPath(a.DBDir, name), scriptPath(a.DBDir, name)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to remove package metadata").
				WithCause(err)
		}
	}
	delete(reg.Packages, name)
	if err := a.save(reg); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("package", name+"-"+version).Bool("updating", updating).Int("files", len(files)).Msg("package removed")
	return nil
}

func (a RegistryFileAdapter) load() (types.RegistryFile, error) {
	if strings.TrimSpace(a.DBDir) == "" {
		return types.RegistryFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package database directory is empty")
	}
	data, err := os.ReadFile(registryPath(a.DBDir))
	if err != nil {
		if os.IsNotExist(err) {
			return types.RegistryFile{Version: registryFormatVersion, Packages: map[string]types.RegistryRecord{}}, nil
		}
		return types.RegistryFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read package registry").
			WithCause(err)
	}
	var reg types.RegistryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return types.RegistryFile{}, errbuilder.New().
			WithCode(errbuilder.CodeDataLoss).
			WithMsg("invalid package registry format").
			WithCause(err)
	}
	if reg.Version == 0 {
		reg.Version = registryFormatVersion
	}
	if reg.Version != registryFormatVersion {
		return types.RegistryFile{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("unsupported registry version %d", reg.Version))
	}
	if reg.Packages == nil {
		reg.Packages = map[string]types.RegistryRecord{}
	}
	return reg, nil
}

// save writes the registry using a temp file and rename.
func (a RegistryFileAdapter) save(reg types.RegistryFile) error {
	if err := os.MkdirAll(a.DBDir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package database directory").
			WithCause(err)
	}
	data, err := yaml.Marshal(reg)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode package registry").
			WithCause(err)
	}
	path := registryPath(a.DBDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write package registry").
			WithCause(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to replace package registry").
			WithCause(err)
	}
	return nil
}

func (a RegistryFileAdapter) now() time.Time {
	if a.Clock == nil {
		return time.Now().UTC()
	}
	return a.Clock().UTC()
}

func installedFromRecord(name string, record types.RegistryRecord) types.InstalledPackage {
	state := record.State
	if state == "" {
		state = types.PackageStateNotApplied
	}
	return types.InstalledPackage{
		Name:      name,
		Version:   record.Version,
		State:     state,
		Automatic: record.Automatic,
		Essential: record.Essential,
		Depends:   append([]string(nil), record.Depends...),

		InstalledAt: parseRecordTime(record.InstalledAt),
	}
}

func readFilesList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open package file list").
			WithCause(err)
	}
	defer file.Close()
	var files []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read package file list").
			WithCause(err)
	}
	return files, nil
}

var (
	_ ports.RegistryPort     = RegistryFileAdapter{}
	_ ports.StateTrackerPort = RegistryFileAdapter{}
	_ ports.RemoverPort      = RegistryFileAdapter{}
)
