package types

import "time"

// PackageEntry is one package's role in a transaction.
type PackageEntry struct {
	Name             string
	Version          string
	InstalledVersion string

	// Repository and Filename locate the downloadable artifact.
	Repository string
	Filename   string
	SHA256     string

	SizeDownload  int64
	SizeInstalled int64

	// Essential packages are overwritten in place on upgrade, never
	// removed first.
	Essential    bool
	IsDependency bool
	Depends      []string

	State PackageState
}

// PkgVer renders the "name-version" token used in user-facing output.
func (e PackageEntry) PkgVer() string {
	return e.Name + "-" + e.Version
}

// Upgrades reports whether the entry replaces a different installed
// version of the same package.
func (e PackageEntry) Upgrades() bool {
	return e.InstalledVersion != "" && e.InstalledVersion != e.Version
}

type InstalledPackage struct {
	Name        string
	Version     string
	State       PackageState
	Automatic   bool
	Essential   bool
	Depends     []string
	InstalledAt time.Time
}
