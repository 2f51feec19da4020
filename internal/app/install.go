package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// InstallOrUpdate installs a named package with its dependencies or,
// with Update set, upgrades an installed one.
func (s Service) InstallOrUpdate(ctx context.Context, req InstallRequest) (InstallResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	var result InstallResult
	err := s.withLock(ctx, func() error {
		var err error
		result, err = s.installOrUpdate(ctx, name, req)
		return err
	})
	return result, err
}

func (s Service) installOrUpdate(ctx context.Context, name string, req InstallRequest) (InstallResult, error) {
	installed, found, err := s.Registry.LookupInstalled(ctx, name)
	if err != nil {
		return InstallResult{}, err
	}

	var set types.TransactionSet
	if !req.Update {
		if found {
			fmt.Fprintf(s.Out, "Package '%s' is already installed.\n", name)
			return InstallResult{Outcome: OutcomeAlreadyInstalled}, nil
		}
		set, err = s.Resolver.ResolveInstall(ctx, name)
		if errors.Is(err, ports.ErrNotFound) {
			fmt.Fprintf(s.Out, "Unable to locate '%s' in repository pool.\n", name)
			return InstallResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("package %s not found in repository pool", name)).
				WithCause(err)
		}
	} else {
		if !found {
			fmt.Fprintf(s.Out, "Package '%s' not installed.\n", name)
			return InstallResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("package %s is not installed", name))
		}
		set, err = s.Resolver.ResolveUpgrade(ctx, installed)
		if errors.Is(err, ports.ErrNoNewerVersion) {
			fmt.Fprintf(s.Out, "Package '%s' is up to date.\n", name)
			return InstallResult{Outcome: OutcomeUpToDate}, nil
		}
	}
	if err != nil {
		fmt.Fprintf(s.Out, "Unexpected error: %v\n", err)
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeOf(err)).
			WithMsg(fmt.Sprintf("failed to resolve %s", name)).
			WithCause(err)
	}

	if len(set.Missing) > 0 {
		s.reportMissing(name, set.Missing)
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("unable to locate %d required package(s) for %s", len(set.Missing), name))
	}

	set.Mode = types.TransactionModeSingleTarget
	set.OriginName = name
	set.Force = req.Force
	set.IsUpdate = req.Update
	log.Ctx(ctx).Debug().Str("package", name).Strs("entries", set.Names()).Bool("update", req.Update).Msg("transaction built")

	applied, err := s.executor().Execute(ctx, set)
	if err != nil {
		return InstallResult{}, err
	}
	if !applied {
		return InstallResult{Outcome: OutcomeAborted}, nil
	}
	outcome := OutcomeInstalled
	if req.Update {
		outcome = OutcomeUpdated
	}
	return InstallResult{Outcome: outcome, Packages: set.Names()}, nil
}

func (s Service) reportMissing(name string, missing []types.MissingDependency) {
	fmt.Fprintf(s.Out, "Unable to locate some required packages for %s:\n", name)
	for _, dep := range missing {
		fmt.Fprintf(s.Out, "  * Missing binary package for: %s >= %s\n", dep.Name, dep.MinVersion)
	}
}
