package ports

import "xpkg/internal/types"

type PlacementPolicyPort interface {
	IsEssential(entry types.PackageEntry) bool
	ChoosePlacementStrategy(entry types.PackageEntry, upgrade bool) types.PlacementStrategy
}
