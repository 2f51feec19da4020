package app

import (
	"io"
	"os"
	"path/filepath"

	"xpkg/internal/adapters"
	"xpkg/internal/core"
	"xpkg/internal/policies"
	"xpkg/internal/ports"
)

// Config locates the target system and its package sources.
type Config struct {
	Root         string
	DBDir        string
	Repositories []string
	Essential    []string
	In           io.Reader
	Out          io.Writer
}

type Service struct {
	Resolver   ports.ResolverPort
	Registry   ports.RegistryPort
	States     ports.StateTrackerPort
	Verifier   ports.ArtifactVerifierPort
	Unpacker   ports.UnpackerPort
	Remover    ports.RemoverPort
	Configurer ports.ConfigurerPort
	Prompter   ports.PrompterPort
	Sizes      ports.SizeFormatterPort
	Policy     ports.PlacementPolicyPort
	Lock       ports.LockPort
	Out        io.Writer
}

func NewService(cfg Config) Service {
	root := cfg.Root
	if root == "" {
		root = "/"
	}
	dbDir := cfg.DBDir
	if dbDir == "" {
		dbDir = DefaultDBDir(root)
	}
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	registry := adapters.NewRegistryFileAdapter(root, dbDir)
	return Service{
		Resolver:   core.NewPoolResolver(adapters.NewRepoIndexFileAdapter(cfg.Repositories), registry),
		Registry:   registry,
		States:     registry,
		Verifier:   adapters.NewArtifactHashAdapter(),
		Unpacker:   adapters.NewTarUnpackerAdapter(root, dbDir),
		Remover:    registry,
		Configurer: adapters.NewScriptConfigurerAdapter(root, dbDir),
		Prompter:   adapters.NewTerminalPrompterAdapter(in, out),
		Sizes:      adapters.NewSizeFormatterAdapter(),
		Policy:     policies.NewPlacementPolicy(cfg.Essential),
		Lock:       adapters.NewLockFileAdapter(dbDir),
		Out:        out,
	}
}

// DefaultDBDir is where the package database lives beneath root.
func DefaultDBDir(root string) string {
	return filepath.Join(root, "var", "db", "xpkg")
}

func (s Service) executor() core.Executor {
	return core.Executor{
		Registry:   s.Registry,
		States:     s.States,
		Verifier:   s.Verifier,
		Unpacker:   s.Unpacker,
		Remover:    s.Remover,
		Configurer: s.Configurer,
		Prompter:   s.Prompter,
		Sizes:      s.Sizes,
		Policy:     s.Policy,
		Out:        s.Out,
	}
}
