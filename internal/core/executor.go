package core

import (
	"context"
	"fmt"
	"io"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

const confirmPrompt = "Do you want to continue?"

// Executor applies a TransactionSet in two ordered passes: every entry
// is unpacked and registered first, then every entry is configured. Each
// step advances the entry's persisted state so an interrupted run
// resumes from the first entry that was not unpacked.
type Executor struct {
	Registry   ports.RegistryPort
	States     ports.StateTrackerPort
	Verifier   ports.ArtifactVerifierPort
	Unpacker   ports.UnpackerPort
	Remover    ports.RemoverPort
	Configurer ports.ConfigurerPort
	Prompter   ports.PrompterPort
	Sizes      ports.SizeFormatterPort
	Policy     ports.PlacementPolicyPort
	Out        io.Writer
}

// Execute previews, confirms and applies set. It reports false with a
// nil error when the operator declines.
func (e Executor) Execute(ctx context.Context, set types.TransactionSet) (bool, error) {
	if err := e.validate(); err != nil {
		return false, err
	}
	descr := "installed"
	if set.Mode == types.TransactionModeFleetUpdate {
		descr = "updated"
	}
	if err := NewReporter(e.Sizes).Preview(e.Out, set, descr); err != nil {
		return false, err
	}
	if !set.Force && !e.Prompter.Confirm(confirmPrompt) {
		fmt.Fprintln(e.Out, "Aborting!")
		log.Ctx(ctx).Info().Msg("transaction declined")
		return false, nil
	}
	if err := NewIntegrityGate(e.Verifier, e.States, e.Out).Check(ctx, set); err != nil {
		return false, err
	}
	if err := e.applyPass(ctx, set); err != nil {
		return false, err
	}
	if err := e.configurePass(ctx, set); err != nil {
		return false, err
	}
	return true, nil
}

func (e Executor) applyPass(ctx context.Context, set types.TransactionSet) error {
	for _, entry := range set.Entries {
		assert.NotEmpty(ctx, entry.Name, "package name must be set")
		assert.NotEmpty(ctx, entry.Version, "package version must be set")

		state, err := readState(ctx, e.States, entry)
		if err != nil {
			return err
		}
		if state.Applied() {
			log.Ctx(ctx).Debug().Str("package", entry.PkgVer()).Str("state", string(state)).Msg("already unpacked, skipping")
			continue
		}
		if err := e.apply(ctx, set, entry); err != nil {
			return err
		}
	}
	return nil
}

func (e Executor) apply(ctx context.Context, set types.TransactionSet, entry types.PackageEntry) error {
	upgrade := upgradeApplies(set, entry)
	essential := e.Policy.IsEssential(entry)
	strategy := e.Policy.ChoosePlacementStrategy(entry, upgrade)
	log.Ctx(ctx).Debug().Str("package", entry.PkgVer()).Str("strategy", string(strategy)).Msg("placement chosen")

	if upgrade {
		installed, found, err := e.Registry.LookupInstalled(ctx, entry.Name)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(e.Out, "error: unable to find %s installed record!\n", entry.Name)
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unable to find %s installed record", entry.Name))
		}
		if strategy == types.PlacementRemoveThenInstall {
			if err := e.Remover.Remove(ctx, entry.Name, installed.Version, true); err != nil {
				fmt.Fprintf(e.Out, "error: removing %s-%s (%v)\n", entry.Name, installed.Version, err)
				return mutationError("remove", entry.Name+"-"+installed.Version, err)
			}
		}
	}

	fmt.Fprintf(e.Out, "Unpacking %s (from .../%s) ...\n", entry.PkgVer(), entry.Filename)
	if err := e.Unpacker.Unpack(ctx, entry, essential); err != nil {
		fmt.Fprintf(e.Out, "error: unpacking %s (%v)\n", entry.PkgVer(), err)
		return mutationError("unpack", entry.PkgVer(), err)
	}

	isDependency := entry.IsDependency
	if set.Mode == types.TransactionModeSingleTarget && entry.Name != set.OriginName {
		isDependency = true
	}
	if err := e.Registry.Register(ctx, entry, isDependency); err != nil {
		fmt.Fprintf(e.Out, "error: registering %s! (%v)\n", entry.PkgVer(), err)
		return mutationError("register", entry.PkgVer(), err)
	}

	if err := e.States.SetState(ctx, entry.Name, entry.Version, types.PackageStateUnpacked); err != nil {
		return mutationError("record state of", entry.PkgVer(), err)
	}
	log.Ctx(ctx).Debug().Str("package", entry.PkgVer()).Msg("state advanced to unpacked")
	return nil
}

// configurePass runs for every entry, including those skipped by the
// apply pass, so all files of the batch are on disk before any
// configuration step runs.
func (e Executor) configurePass(ctx context.Context, set types.TransactionSet) error {
	for _, entry := range set.Entries {
		fmt.Fprintf(e.Out, "Configuring package %s ...\n", entry.PkgVer())
		if err := e.Configurer.Configure(ctx, entry.Name, entry.Version); err != nil {
			fmt.Fprintf(e.Out, "Error configuring package %s\n", entry.PkgVer())
			return mutationError("configure", entry.PkgVer(), err)
		}
		if err := e.States.SetState(ctx, entry.Name, entry.Version, types.PackageStateConfigured); err != nil {
			return mutationError("record state of", entry.PkgVer(), err)
		}
	}
	return nil
}

func (e Executor) validate() error {
	if e.Registry == nil || e.States == nil || e.Verifier == nil || e.Unpacker == nil ||
		e.Remover == nil || e.Configurer == nil || e.Prompter == nil || e.Sizes == nil ||
		e.Policy == nil || e.Out == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("executor requires all collaborator ports")
	}
	return nil
}

// upgradeApplies reports whether an installed copy of the entry must be
// replaced: always in a fleet update, and in single-target mode when the
// package is installed under a different version.
func upgradeApplies(set types.TransactionSet, entry types.PackageEntry) bool {
	if set.Mode == types.TransactionModeFleetUpdate {
		return true
	}
	return entry.Upgrades()
}

func mutationError(action string, pkgver string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to %s %s", action, pkgver)).
		WithCause(cause)
}
