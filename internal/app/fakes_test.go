package app

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"xpkg/internal/core"
	"xpkg/internal/policies"
	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// fakeSystem stands in for every mutating collaborator and records the
// calls made against it.
type fakeSystem struct {
	calls     []string
	installed map[string]types.InstalledPackage
	states    map[string]types.PackageState
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{installed: map[string]types.InstalledPackage{}, states: map[string]types.PackageState{}}
}

func (f *fakeSystem) install(name string, version string, automatic bool) {
	f.installed[name] = types.InstalledPackage{Name: name, Version: version, State: types.PackageStateConfigured, Automatic: automatic}
	f.states[name+"-"+version] = types.PackageStateConfigured
}

func (f *fakeSystem) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSystem) mutations() []string {
	var out []string
	for _, call := range f.calls {
		if !strings.HasPrefix(call, "verify ") {
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
	out := make([]types.InstalledPackage, 0, len(f.installed))
	for _, pkg := range f.installed {
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeSystem) Register(_ context.Context, entry types.PackageEntry, isDependency bool) error {
	f.record("register %s dep=%t", entry.PkgVer(), isDependency)
	f.installed[entry.Name] = types.InstalledPackage{Name: entry.Name, Version: entry.Version, Automatic: isDependency, Essential: entry.Essential}
	return nil
}

func (f *fakeSystem) GetState(_ context.Context, name string, version string) (types.PackageState, error) {
	if state, ok := f.states[name+"-"+version]; ok {
		return state, nil
	}
	return types.PackageStateNotApplied, nil
}

func (f *fakeSystem) SetState(_ context.Context, name string, version string, state types.PackageState) error {
	f.record("state %s-%s %s", name, version, state)
	f.states[name+"-"+version] = state
	return nil
}

func (f *fakeSystem) Remove(_ context.Context, name string, version string, _ bool) error {
	f.record("remove %s-%s", name, version)
	delete(f.installed, name)
	return nil
}

func (f *fakeSystem) Unpack(_ context.Context, entry types.PackageEntry, essential bool) error {
	f.record("unpack %s essential=%t", entry.PkgVer(), essential)
	return nil
}

func (f *fakeSystem) Verify(_ context.Context, entry types.PackageEntry) error {
	f.record("verify %s", entry.PkgVer())
	return nil
}

func (f *fakeSystem) Configure(_ context.Context, name string, version string) error {
	f.record("configure %s-%s", name, version)
	return nil
}

type fakeRepoIndex map[string][]types.PackageEntry

func (f fakeRepoIndex) Candidates(name string) ([]types.PackageEntry, error) {
	return f[name], nil
}

// stubResolver overrides individual resolver calls and falls back to
// the wrapped resolver for the rest.
type stubResolver struct {
	ports.ResolverPort
	installErr error
	upgradeErr error
	sortErr    error
}

func (s stubResolver) ResolveInstall(ctx context.Context, name string) (types.TransactionSet, error) {
	if s.installErr != nil {
		return types.TransactionSet{}, s.installErr
	}
	return s.ResolverPort.ResolveInstall(ctx, name)
}

func (s stubResolver) ResolveUpgrade(ctx context.Context, installed types.InstalledPackage) (types.TransactionSet, error) {
	if s.upgradeErr != nil {
		return types.TransactionSet{}, s.upgradeErr
	}
	return s.ResolverPort.ResolveUpgrade(ctx, installed)
}

func (s stubResolver) Sort(ctx context.Context, set types.TransactionSet) (types.TransactionSet, error) {
	if s.sortErr != nil {
		return types.TransactionSet{}, s.sortErr
	}
	return s.ResolverPort.Sort(ctx, set)
}

type fakePrompter struct {
	answer bool
}

func (p fakePrompter) Confirm(string) bool {
	return p.answer
}

type fakeSizes struct{}

func (fakeSizes) Humanize(n int64) (string, error) {
	return fmt.Sprintf("%dB", n), nil
}

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLock) Acquire() error {
	if l.held {
		return errbuilder.New().WithCode(errbuilder.CodeUnavailable).WithMsg("package database is locked")
	}
	l.held = true
	l.acquired++
	return nil
}

func (l *fakeLock) Release() error {
	l.held = false
	l.released++
	return nil
}

type testEnv struct {
	service Service
	sys     *fakeSystem
	lock    *fakeLock
	out     *bytes.Buffer
}

func newTestEnv(repo fakeRepoIndex) *testEnv {
	sys := newFakeSystem()
	lock := &fakeLock{}
	out := &bytes.Buffer{}
	return &testEnv{
		sys:  sys,
		lock: lock,
		out:  out,
		service: Service{
			Resolver:   core.NewPoolResolver(repo, sys),
			Registry:   sys,
			States:     sys,
			Verifier:   sys,
			Unpacker:   sys,
			Remover:    sys,
			Configurer: sys,
			Prompter:   fakePrompter{answer: true},
			Sizes:      fakeSizes{},
			Policy:     policies.NewPlacementPolicy(nil),
			Lock:       lock,
			Out:        out,
		},
	}
}

func pkg(name string, version string, depends ...string) types.PackageEntry {
	return types.PackageEntry{
		Name:          name,
		Version:       version,
		Filename:      name + "-" + version + ".tar.gz",
		SizeDownload:  10,
		SizeInstalled: 40,
		Depends:       depends,
	}
}
