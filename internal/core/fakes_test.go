package core

import (
	"context"
	"fmt"
	"sort"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

type fakeState struct {
	version string
	state   types.PackageState
}

// fakeSystem records every collaborator call the executor makes, in
// order, as short "verb name-version" strings.
type fakeSystem struct {
	calls       []string
	installed   map[string]types.InstalledPackage
	states      map[string]fakeState
	regressions []string

	// stateErr fails GetState for a package once stateReadsOK reads of
	// it have succeeded.
	stateErr     map[string]error
	stateReadsOK map[string]int
	stateReads   map[string]int

	mismatch     map[string]bool
	verifyErr    map[string]error
	unpackErr    map[string]error
	removeErr    map[string]error
	registerErr  map[string]error
	configureErr map[string]error
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		installed:    map[string]types.InstalledPackage{},
		states:       map[string]fakeState{},
		stateErr:     map[string]error{},
		stateReadsOK: map[string]int{},
		stateReads:   map[string]int{},
		mismatch:     map[string]bool{},
		verifyErr:    map[string]error{},
		unpackErr:    map[string]error{},
		removeErr:    map[string]error{},
		registerErr:  map[string]error{},
		configureErr: map[string]error{},
	}
}

func (f *fakeSystem) install(name string, version string, state types.PackageState, essential bool) {
	f.installed[name] = types.InstalledPackage{Name: name, Version: version, State: state, Essential: essential}
	f.states[name] = fakeState{version: version, state: state}
}

func (f *fakeSystem) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSystem) mutations() []string {
	var out []string
	for _, call := range f.calls {
		switch call[:3] {
		case "unp", "rem", "reg", "sta", "con":
			out = append(out, call)
		}
	}
	return out
}

func (f *fakeSystem) LookupInstalled(_ context.Context, name string) (types.InstalledPackage, bool, error) {
	pkg, ok := f.installed[name]
	return pkg, ok, nil
}

func (f *fakeSystem) ListInstalled(_ context.Context) ([]types.InstalledPackage, error) {
	names := make([]string, 0, len(f.installed))
	for name := range f.installed {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]types.InstalledPackage, 0, len(names))
	for _, name := range names {
		out = append(out, f.installed[name])
	}
	return out, nil
}

func (f *fakeSystem) Register(_ context.Context, entry types.PackageEntry, isDependency bool) error {
	f.record("register %s dep=%t", entry.PkgVer(), isDependency)
	if err := f.registerErr[entry.Name]; err != nil {
		return err
	}
	f.installed[entry.Name] = types.InstalledPackage{Name: entry.Name, Version: entry.Version, Automatic: isDependency, Essential: entry.Essential}
	if f.states[entry.Name].version != entry.Version {
		f.states[entry.Name] = fakeState{version: entry.Version, state: types.PackageStateNotApplied}
	}
	return nil
}

func (f *fakeSystem) GetState(_ context.Context, name string, version string) (types.PackageState, error) {
	f.stateReads[name]++
	if err := f.stateErr[name]; err != nil && f.stateReads[name] > f.stateReadsOK[name] {
		return "", err
	}
	current, ok := f.states[name]
	if !ok || current.version != version || current.state == "" {
		return types.PackageStateNotApplied, nil
	}
	return current.state, nil
}

func (f *fakeSystem) SetState(_ context.Context, name string, version string, state types.PackageState) error {
	f.record("state %s-%s %s", name, version, state)
	current := f.states[name]
	if current.version == version && state.Rank() < current.state.Rank() {
		f.regressions = append(f.regressions, name)
		return fmt.Errorf("state regression for %s", name)
	}
	f.states[name] = fakeState{version: version, state: state}
	return nil
}

func (f *fakeSystem) Remove(_ context.Context, name string, version string, updating bool) error {
	f.record("remove %s-%s updating=%t", name, version, updating)
	if err := f.removeErr[name]; err != nil {
		return err
	}
	delete(f.installed, name)
	delete(f.states, name)
	return nil
}

func (f *fakeSystem) Unpack(_ context.Context, entry types.PackageEntry, essential bool) error {
	f.record("unpack %s essential=%t", entry.PkgVer(), essential)
	return f.unpackErr[entry.Name]
}

func (f *fakeSystem) Verify(_ context.Context, entry types.PackageEntry) error {
	f.record("verify %s", entry.PkgVer())
	if f.mismatch[entry.Name] {
		return fmt.Errorf("%w: %s", ports.ErrHashMismatch, entry.Filename)
	}
	return f.verifyErr[entry.Name]
}

func (f *fakeSystem) Configure(_ context.Context, name string, version string) error {
	f.record("configure %s-%s", name, version)
	return f.configureErr[name]
}

type fakePrompter struct {
	answer bool
	asked  []string
}

func (p *fakePrompter) Confirm(prompt string) bool {
	p.asked = append(p.asked, prompt)
	return p.answer
}

type fakeSizes struct{}

func (fakeSizes) Humanize(bytes int64) (string, error) {
	if bytes < 0 {
		return "", fmt.Errorf("negative size %d", bytes)
	}
	return fmt.Sprintf("%dB", bytes), nil
}

type fakeRepoIndex map[string][]types.PackageEntry

func (f fakeRepoIndex) Candidates(name string) ([]types.PackageEntry, error) {
	return f[name], nil
}

var (
	_ ports.RegistryPort         = (*fakeSystem)(nil)
	_ ports.StateTrackerPort     = (*fakeSystem)(nil)
	_ ports.RemoverPort          = (*fakeSystem)(nil)
	_ ports.UnpackerPort         = (*fakeSystem)(nil)
	_ ports.ArtifactVerifierPort = (*fakeSystem)(nil)
	_ ports.ConfigurerPort       = (*fakeSystem)(nil)
	_ ports.PrompterPort         = (*fakePrompter)(nil)
	_ ports.SizeFormatterPort    = fakeSizes{}
	_ ports.RepoIndexPort        = fakeRepoIndex{}
)
