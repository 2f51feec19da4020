package core

import (
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"

	"xpkg/internal/types"
)

// versionCache memoizes parsed Debian versions to avoid repeated parsing
// during constraint evaluation and sorting.
type versionCache struct {
	deb map[string]debversion.Version
}

func newVersionCache() *versionCache {
	return &versionCache{deb: map[string]debversion.Version{}}
}

// parse returns a parsed version, caching the result.
func (c *versionCache) parse(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version %q", value)).
			WithCause(err)
	}
	c.deb[value] = parsed
	return parsed, nil
}

// compare returns -1, 0, or 1 comparing two version strings. Unparseable
// versions compare equal.
func (c *versionCache) compare(a string, b string) int {
	v1, err := c.parse(a)
	if err != nil {
		return 0
	}
	v2, err := c.parse(b)
	if err != nil {
		return 0
	}
	return v1.Compare(v2)
}

// satisfies checks a version against a single constraint.
func (c *versionCache) satisfies(version string, constraint types.Constraint) (bool, error) {
	if constraint.Op == types.ConstraintOpNone {
		return true, nil
	}
	v, err := c.parse(version)
	if err != nil {
		return false, err
	}
	want, err := c.parse(constraint.Version)
	if err != nil {
		return false, err
	}
	switch constraint.Op {
	case types.ConstraintOpEq, types.ConstraintOpEq2:
		return v.Equal(want), nil
	case types.ConstraintOpGte:
		return !v.LessThan(want), nil
	case types.ConstraintOpLte:
		return !v.GreaterThan(want), nil
	case types.ConstraintOpGt:
		return v.GreaterThan(want), nil
	case types.ConstraintOpLt:
		return v.LessThan(want), nil
	default:
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported constraint operator")
	}
}

// newest sorts candidates from highest to lowest version.
func (c *versionCache) newest(candidates []types.PackageEntry) []types.PackageEntry {
	ordered := append([]types.PackageEntry(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return c.compare(ordered[i].Version, ordered[j].Version) > 0
	})
	return ordered
}

// IsNewer reports whether candidate is a strictly higher version than
// installed.
func IsNewer(candidate string, installed string) (bool, error) {
	cache := newVersionCache()
	v1, err := cache.parse(candidate)
	if err != nil {
		return false, err
	}
	v2, err := cache.parse(installed)
	if err != nil {
		return false, err
	}
	return v1.GreaterThan(v2), nil
}
