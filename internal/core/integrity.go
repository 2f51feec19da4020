package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// IntegrityGate verifies the artifact of every entry that still has to
// be applied. It is a batch pre-flight check: the first failure aborts
// the whole transaction before anything is mutated.
type IntegrityGate struct {
	Verifier ports.ArtifactVerifierPort
	States   ports.StateTrackerPort
	Out      io.Writer
}

func NewIntegrityGate(verifier ports.ArtifactVerifierPort, states ports.StateTrackerPort, out io.Writer) IntegrityGate {
	return IntegrityGate{Verifier: verifier, States: states, Out: out}
}

func (g IntegrityGate) Check(ctx context.Context, set types.TransactionSet) error {
	if g.Verifier == nil || g.States == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("integrity gate requires verifier and state tracker ports")
	}
	fmt.Fprintln(g.Out, "Checking binary package file(s) integrity...")
	for _, entry := range set.Entries {
		state, err := readState(ctx, g.States, entry)
		if err != nil {
			return err
		}
		if state.Applied() {
			log.Ctx(ctx).Debug().Str("package", entry.Name).Msg("artifact already consumed, skipping hash check")
			continue
		}
		err = g.Verifier.Verify(ctx, entry)
		if err == nil {
			continue
		}
		if errors.Is(err, ports.ErrHashMismatch) {
			fmt.Fprintf(g.Out, "Hash mismatch for %s, exiting.\n", entry.Filename)
			return errbuilder.New().
				WithCode(errbuilder.CodeDataLoss).
				WithMsg(fmt.Sprintf("hash mismatch for %s", entry.Filename)).
				WithCause(err)
		}
		fmt.Fprintf(g.Out, "Unexpected error while checking hash for %s (%v)\n", entry.Filename, err)
		return errbuilder.New().
			WithCode(errbuilder.CodeOf(err)).
			WithMsg(fmt.Sprintf("failed to verify %s", entry.Filename)).
			WithCause(err)
	}
	return nil
}

// readState fetches the persisted lifecycle tag of an entry. There is no
// fallback: without the tag the caller cannot tell skip from apply.
func readState(ctx context.Context, states ports.StateTrackerPort, entry types.PackageEntry) (types.PackageState, error) {
	state, err := states.GetState(ctx, entry.Name, entry.Version)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read state of %s", entry.PkgVer())).
			WithCause(err)
	}
	return state, nil
}
