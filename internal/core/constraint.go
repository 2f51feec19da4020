package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"xpkg/internal/types"
)

// opTokens is the ordered list of constraint operators tried during
// parsing. Longer tokens must precede shorter ones to avoid false matches
// (e.g. ">=" before ">").
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpEq2,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
}

// ParseConstraint splits a raw "name>=version" string into a Constraint.
// When no operator is found the constraint is treated as a bare name
// reference with ConstraintOpNone.
func ParseConstraint(raw string, source string) (types.Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Constraint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty constraint")
	}
	for _, op := range opTokens {
		if strings.Contains(raw, string(op)) {
			parts := strings.SplitN(raw, string(op), 2)
			name := strings.TrimSpace(parts[0])
			version := strings.TrimSpace(parts[1])
			if name == "" || version == "" {
				return types.Constraint{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid constraint: %s", raw))
			}
			return types.Constraint{
				Name:    name,
				Op:      op,
				Version: version,
				Source:  source,
			}, nil
		}
	}
	if strings.ContainsAny(raw, " \t") {
		return types.Constraint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid constraint: %s", raw))
	}
	return types.Constraint{
		Name:    raw,
		Op:      types.ConstraintOpNone,
		Version: "",
		Source:  source,
	}, nil
}

// minimumVersion reports the lowest acceptable version implied by a
// constraint, used when describing a dependency nothing can satisfy.
func minimumVersion(c types.Constraint) string {
	switch c.Op {
	case types.ConstraintOpNone:
		return "0"
	default:
		return c.Version
	}
}
