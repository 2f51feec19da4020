package types

// RepoIndexFile is the index.yaml stored at the root of a repository
// directory.
type RepoIndexFile struct {
	Packages map[string][]RepoPackageVersion `yaml:"packages"`
}

type RepoPackageVersion struct {
	Version       string   `yaml:"version"`
	Filename      string   `yaml:"filename"`
	SHA256        string   `yaml:"sha256"`
	SizeDownload  int64    `yaml:"size_download"`
	SizeInstalled int64    `yaml:"size_installed"`
	Essential     bool     `yaml:"essential,omitempty"`
	Depends       []string `yaml:"depends,omitempty"`
}
