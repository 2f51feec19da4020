package types

type PackageState string

const (
	PackageStateNotApplied PackageState = "not-applied"
	PackageStateUnpacked   PackageState = "unpacked"
	PackageStateConfigured PackageState = "configured"
)

// Rank orders states along the lifecycle. Unknown values rank as
// not-applied.
func (s PackageState) Rank() int {
	switch s {
	case PackageStateUnpacked:
		return 1
	case PackageStateConfigured:
		return 2
	default:
		return 0
	}
}

// Applied reports whether the package files are already on disk and
// registered.
func (s PackageState) Applied() bool {
	return s.Rank() > 0
}

func (s PackageState) Valid() bool {
	switch s {
	case PackageStateNotApplied, PackageStateUnpacked, PackageStateConfigured:
		return true
	default:
		return false
	}
}

type TransactionMode string

const (
	TransactionModeSingleTarget TransactionMode = "single-target"
	TransactionModeFleetUpdate  TransactionMode = "fleet-update"
)

type PlacementStrategy string

const (
	PlacementFreshInstall      PlacementStrategy = "fresh-install"
	PlacementRemoveThenInstall PlacementStrategy = "remove-then-install"
	PlacementOverwriteInPlace  PlacementStrategy = "overwrite-in-place"
)

type ConstraintOp string

const (
	ConstraintOpNone ConstraintOp = ""
	ConstraintOpEq   ConstraintOp = "="
	ConstraintOpEq2  ConstraintOp = "=="
	ConstraintOpGte  ConstraintOp = ">="
	ConstraintOpLte  ConstraintOp = "<="
	ConstraintOpGt   ConstraintOp = ">"
	ConstraintOpLt   ConstraintOp = "<"
)
