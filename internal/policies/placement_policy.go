package policies

import (
	"strings"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

// PlacementPolicy decides how a package reaches disk. Packages flagged
// essential by their repository, or matching one of the configured
// essential patterns, are overwritten in place on upgrade so they are
// never absent from the system.
type PlacementPolicy struct {
	Patterns []string
	exact    map[string]struct{}
	prefixes []string
	wildcard bool
}

// NewPlacementPolicy compiles essential patterns. A pattern is an exact
// package name, a prefix ending in "*", or "*" alone.
func NewPlacementPolicy(patterns []string) PlacementPolicy {
	policy := PlacementPolicy{Patterns: patterns}
	policy.compile()
	return policy
}

// ChoosePlacementStrategy applies the default policy with no extra
// essential patterns.
func ChoosePlacementStrategy(entry types.PackageEntry, upgrade bool) types.PlacementStrategy {
	return PlacementPolicy{}.ChoosePlacementStrategy(entry, upgrade)
}

func (p PlacementPolicy) ChoosePlacementStrategy(entry types.PackageEntry, upgrade bool) types.PlacementStrategy {
	if !upgrade {
		return types.PlacementFreshInstall
	}
	if p.IsEssential(entry) {
		return types.PlacementOverwriteInPlace
	}
	return types.PlacementRemoveThenInstall
}

func (p PlacementPolicy) IsEssential(entry types.PackageEntry) bool {
	if entry.Essential {
		return true
	}
	return p.matches(entry.Name)
}

func (p PlacementPolicy) matches(name string) bool {
	if p.wildcard {
		return true
	}
	if _, ok := p.exact[name]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (p *PlacementPolicy) compile() {
	p.exact = map[string]struct{}{}
	p.prefixes = nil
	p.wildcard = false
	for _, raw := range p.Patterns {
		pattern := strings.TrimSpace(raw)
		switch {
		case pattern == "":
			continue
		case pattern == "*":
			p.wildcard = true
		case strings.HasSuffix(pattern, "*"):
			p.prefixes = append(p.prefixes, strings.TrimSuffix(pattern, "*"))
		default:
			p.exact[pattern] = struct{}{}
		}
	}
}

var _ ports.PlacementPolicyPort = PlacementPolicy{}
