package domain

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Wildcard selects every configured or supported value of a matrix dimension.
const Wildcard = "*"

// DefaultVersionVariable is the linker variable stamped with the build version.
const DefaultVersionVariable = "main.version"

// ToolchainConfig configures compilation.
type ToolchainConfig struct {
	Go       string
	Trimpath bool
	LDFlags  string
	Env      map[string]string
}

// CompressConfig configures binary compression.
type CompressConfig struct {
	Tool string
	Args []string
}

// UniversalConfig configures universal binary merging.
type UniversalConfig struct {
	Tool string
}

// ImageConfig configures container image assembly.
type ImageConfig struct {
	Tool       string
	Repository string
	BuildArg   string
	Context    string
	// Builder is the buildx builder created and selected before images are built.
	// Empty skips builder setup.
	Builder string
}

// BuildConfig is the validated project configuration.
type BuildConfig struct {
	// Root is the absolute directory the configuration was loaded from.
	Root string
	// Version overrides the version derived from source control.
	Version string
	// DistDir is the artifact directory relative to Root.
	DistDir string
	// VersionVariable is the linker variable stamped with the version.
	VersionVariable string
	// Projects lists the project directories under Root. Empty accepts any project named on
	// the command line.
	Projects        []string
	Platforms       []string
	Architectures   []string
	Toolchain       ToolchainConfig
	// Prepare lists commands run serially before any task.
	Prepare   [][]string
	Compress  CompressConfig
	Universal UniversalConfig
	Image     ImageConfig
}

// DefaultBuildConfig returns the configuration used when no config file exists.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		DistDir:         DefaultDistDir,
		VersionVariable: DefaultVersionVariable,
		Platforms:       KnownPlatforms(),
		Architectures:   []string{Wildcard},
		Toolchain: ToolchainConfig{
			Go:      "go",
			LDFlags: "-w -s",
		},
		Prepare: [][]string{{"go", "mod", "download"}},
		Compress: CompressConfig{
			Tool: "upx",
			Args: []string{"-9"},
		},
		Universal: UniversalConfig{Tool: "lipo"},
		Image: ImageConfig{
			Tool:     "docker",
			BuildArg: "SIDE",
			Context:  ".",
		},
	}
}

// Validate checks the configuration for values the planner cannot work with.
func (c BuildConfig) Validate() error {
	if slices.Contains(c.Projects, Wildcard) {
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "projects cannot be a wildcard"), "field", "projects")
	}
	for _, p := range c.Platforms {
		if p != Wildcard && !IsKnownPlatform(p) {
			return zerr.With(zerr.Wrap(ErrUnknownPlatform, "invalid configuration"), "platform", p)
		}
	}
	for _, p := range c.Projects {
		if p == "" || p == "." || p == ".." {
			return zerr.With(zerr.Wrap(ErrInvalidConfig, "invalid project name"), "project", p)
		}
	}
	for i, cmd := range c.Prepare {
		if len(cmd) == 0 {
			return zerr.With(zerr.Wrap(ErrInvalidConfig, "empty prepare command"), "index", i)
		}
	}
	if _, err := c.DistPath(); err != nil {
		return err
	}
	return nil
}

// DistPath returns the artifact directory joined to Root.
// The directory is emptied before every build, so it must sit strictly below Root and
// outside the state directory.
func (c BuildConfig) DistPath() (string, error) {
	rel := filepath.Clean(c.DistDir)
	if c.DistDir == "" || filepath.IsAbs(rel) || rel == "." || escapesRoot(rel) || withinDir(rel, StateDirName) {
		err := zerr.Wrap(ErrInvalidConfig, "dist must be a directory below the configuration root")
		return "", zerr.With(err, "dist", c.DistDir)
	}
	return filepath.Join(c.Root, rel), nil
}

func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func withinDir(rel, dir string) bool {
	return rel == dir || strings.HasPrefix(rel, dir+string(filepath.Separator))
}

// LDFlags returns the linker flags with the version variable stamped in.
func (c BuildConfig) LDFlags(version string) string {
	flags := c.Toolchain.LDFlags
	if c.VersionVariable == "" {
		return flags
	}
	stamp := "-X '" + c.VersionVariable + "=" + version + "'"
	if flags == "" {
		return stamp
	}
	return flags + " " + stamp
}

// Matrix selects what to build.
type Matrix struct {
	// Projects, Platforms and Architectures hold names or Wildcard. Empty means Wildcard.
	Projects      []string
	Platforms     []string
	Architectures []string
	Compress      bool
	Universal     bool
	Image         ImageOptions
}
