package adapters

import "path/filepath"

const (
	registryFileName = "registry.yaml"
	filesDirName     = "files"
	scriptsDirName   = "scripts"
	installScript    = "INSTALL"
)

func registryPath(dbDir string) string {
	return filepath.Join(dbDir, registryFileName)
}

// filesListPath holds the newline separated list of paths, relative to
// the target root, owned by a package.
func filesListPath(dbDir string, name string) string {
	return filepath.Join(dbDir, filesDirName, name+".list")
}

func scriptPath(dbDir string, name string) string {
	return filepath.Join(dbDir, scriptsDirName, name+"."+installScript)
}
