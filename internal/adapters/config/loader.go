// Package config provides the configuration loader for crossbuild.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only configuration schema version understood by the loader.
const SupportedVersion = "1"

var validProjectNameRegex = regexp.MustCompile("^[a-zA-Z0-9_.-]+$")

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds crossbuild.yaml by walking up from cwd and returns the validated configuration.
// Without a config file the defaults are returned, rooted at cwd.
func (l *Loader) Load(cwd string) (domain.BuildConfig, error) {
	configPath, found := findConfiguration(cwd)
	if !found {
		l.Logger.Info("no " + domain.ConfigFileName + " found, using defaults")
		cfg := domain.DefaultBuildConfig()
		cfg.Root = cwd
		return cfg, nil
	}

	var file Buildfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return domain.BuildConfig{}, zerr.With(err, "path", configPath)
	}

	cfg, err := l.toDomain(&file, filepath.Dir(configPath))
	if err != nil {
		return domain.BuildConfig{}, zerr.With(err, "path", configPath)
	}
	return cfg, nil
}

// DiscoverRoot walks up from cwd to find the directory containing crossbuild.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, found := findConfiguration(cwd)
	if !found {
		return cwd, nil
	}
	return filepath.Dir(configPath), nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

func (l *Loader) toDomain(file *Buildfile, root string) (domain.BuildConfig, error) {
	if file.Version != "" && file.Version != SupportedVersion {
		err := zerr.Wrap(domain.ErrInvalidConfig, "unsupported config version")
		return domain.BuildConfig{}, zerr.With(err, "version", file.Version)
	}

	cfg := domain.DefaultBuildConfig()
	cfg.Root = root
	cfg.Version = file.BuildVersion

	if file.Dist != "" {
		if filepath.IsAbs(file.Dist) {
			err := zerr.Wrap(domain.ErrInvalidConfig, "dist must be relative to the config file")
			return domain.BuildConfig{}, zerr.With(err, "dist", file.Dist)
		}
		cfg.DistDir = filepath.Clean(file.Dist)
	}
	if file.VersionVariable != nil {
		cfg.VersionVariable = *file.VersionVariable
	}

	for _, name := range file.Projects {
		if !validProjectNameRegex.MatchString(name) || name == "." || name == ".." {
			err := zerr.Wrap(domain.ErrInvalidConfig, "invalid project name")
			return domain.BuildConfig{}, zerr.With(err, "project_name", name)
		}
	}
	cfg.Projects = file.Projects
	if len(file.Platforms) > 0 {
		cfg.Platforms = file.Platforms
	}
	if len(file.Architectures) > 0 {
		cfg.Architectures = file.Architectures
	}
	if file.Prepare != nil {
		cfg.Prepare = file.Prepare
	}

	if tc := file.Toolchain; tc != nil {
		if tc.Go != "" {
			cfg.Toolchain.Go = tc.Go
		}
		cfg.Toolchain.Trimpath = tc.Trimpath
		if tc.LDFlags != nil {
			cfg.Toolchain.LDFlags = *tc.LDFlags
		}
		cfg.Toolchain.Env = tc.Env
	}

	if c := file.Compress; c != nil {
		if c.Tool != "" {
			cfg.Compress.Tool = c.Tool
		}
		if c.Args != nil {
			cfg.Compress.Args = c.Args
		}
	}

	if u := file.Universal; u != nil && u.Tool != "" {
		cfg.Universal.Tool = u.Tool
	}

	if img := file.Image; img != nil {
		if img.Tool != "" {
			cfg.Image.Tool = img.Tool
		}
		if img.BuildArg != "" {
			cfg.Image.BuildArg = img.BuildArg
		}
		if img.Context != "" {
			cfg.Image.Context = img.Context
		}
		cfg.Image.Repository = img.Repository
		cfg.Image.Builder = img.Builder
	}

	if err := cfg.Validate(); err != nil {
		return domain.BuildConfig{}, err
	}
	return cfg, nil
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(configFile))
	dec.KnownFields(true)
	if parseErr := dec.Decode(target); parseErr != nil && !errors.Is(parseErr, io.EOF) {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
