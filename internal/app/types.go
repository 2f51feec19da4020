package app

import "xpkg/internal/types"

type Outcome string

const (
	OutcomeInstalled        Outcome = "installed"
	OutcomeUpdated          Outcome = "updated"
	OutcomeAlreadyInstalled Outcome = "already-installed"
	OutcomeUpToDate         Outcome = "up-to-date"
	OutcomeNothingInstalled Outcome = "nothing-installed"
	OutcomeAborted          Outcome = "aborted"
)

type InstallRequest struct {
	Name   string
	Force  bool
	Update bool
}

type InstallResult struct {
	Outcome  Outcome
	Packages []string
}

type AutoUpdateRequest struct {
	Force bool
}

type AutoUpdateResult struct {
	Outcome  Outcome
	Packages []string
}

type ListResult struct {
	Packages []types.InstalledPackage
}
