package domain

import "path/filepath"

const (
	// StateDirName is the name of the internal workspace directory.
	StateDirName = ".crossbuild"

	// StoreDirName is the name of the build info store directory.
	StoreDirName = "store"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "crossbuild.yaml"

	// DefaultDistDir is the directory artifacts are written to unless configured otherwise.
	DefaultDistDir = "dist"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStatePath returns the default root directory for crossbuild metadata.
func DefaultStatePath() string {
	return StateDirName
}

// DefaultStorePath returns the default path for the build info store.
// It joins .crossbuild and store.
func DefaultStorePath() string {
	return filepath.Join(StateDirName, StoreDirName)
}

// ArtifactName returns the file name of the binary compiled for project, platform and arch.
func ArtifactName(project, platform, arch string) string {
	return project + "-" + platform + "-" + arch + ExecutableSuffix(platform)
}

// CompressedName derives the file name of a compressed binary from its input path.
// The platform executable suffix is kept at the end: "x.exe" becomes "x-compressed.exe".
func CompressedName(path string) string {
	ext := filepath.Ext(path)
	if ext != ".exe" {
		return path + "-compressed"
	}
	return path[:len(path)-len(ext)] + "-compressed" + ext
}

// UniversalName returns the file name of the universal binary of project.
func UniversalName(project string) string {
	return project + "-" + PlatformDarwin + "-universal"
}
