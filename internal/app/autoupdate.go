package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// AutoUpdateAll upgrades every installed package that has a newer
// version in the repository pool, as one transaction.
func (s Service) AutoUpdateAll(ctx context.Context, req AutoUpdateRequest) (AutoUpdateResult, error) {
	var result AutoUpdateResult
	err := s.withLock(ctx, func() error {
		var err error
		result, err = s.autoUpdateAll(ctx, req)
		return err
	})
	return result, err
}

func (s Service) autoUpdateAll(ctx context.Context, req AutoUpdateRequest) (AutoUpdateResult, error) {
	installed, err := s.Registry.ListInstalled(ctx)
	if err != nil {
		return AutoUpdateResult{}, err
	}
	if len(installed) == 0 {
		fmt.Fprintln(s.Out, "No packages currently installed.")
		return AutoUpdateResult{Outcome: OutcomeNothingInstalled}, nil
	}

	set := types.TransactionSet{}
	seen := map[string]struct{}{}
	for _, pkg := range installed {
		upgrade, err := s.Resolver.ResolveUpgrade(ctx, pkg)
		if errors.Is(err, ports.ErrNoNewerVersion) {
			continue
		}
		if err != nil {
			fmt.Fprintf(s.Out, "Error while checking for new packages: %v\n", err)
			return AutoUpdateResult{}, errbuilder.New().
				WithCode(errbuilder.CodeOf(err)).
				WithMsg(fmt.Sprintf("failed to check %s for updates", pkg.Name)).
				WithCause(err)
		}
		if len(upgrade.Missing) > 0 {
			s.reportMissing(pkg.Name, upgrade.Missing)
			return AutoUpdateResult{}, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("unable to locate required package(s) for %s", pkg.Name))
		}
		for _, entry := range upgrade.Entries {
			if _, dup := seen[entry.Name]; dup {
				continue
			}
			if entry.InstalledVersion == "" {
				fmt.Fprintf(s.Out, "Package '%s' requires new package '%s', install it first.\n", pkg.Name, entry.Name)
				return AutoUpdateResult{}, errbuilder.New().
					WithCode(errbuilder.CodeFailedPrecondition).
					WithMsg(fmt.Sprintf("upgrade of %s requires new package %s", pkg.Name, entry.Name))
			}
			seen[entry.Name] = struct{}{}
			set.Entries = append(set.Entries, entry)
		}
	}
	if set.Empty() {
		fmt.Fprintln(s.Out, "All packages are up-to-date.")
		return AutoUpdateResult{Outcome: OutcomeUpToDate}, nil
	}

	sorted, err := s.Resolver.Sort(ctx, set)
	if err != nil {
		fmt.Fprintf(s.Out, "Error while sorting packages: %v\n", err)
		return AutoUpdateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeOf(err)).
			WithMsg("failed to sort update transaction").
			WithCause(err)
	}
	sorted.Mode = types.TransactionModeFleetUpdate
	sorted.IsUpdate = true
	sorted.Force = req.Force
	log.Ctx(ctx).Debug().Strs("entries", sorted.Names()).Msg("fleet update built")

	applied, err := s.executor().Execute(ctx, sorted)
	if err != nil {
		return AutoUpdateResult{}, err
	}
	if !applied {
		return AutoUpdateResult{Outcome: OutcomeAborted}, nil
	}
	return AutoUpdateResult{Outcome: OutcomeUpdated, Packages: sorted.Names()}, nil
}
