package ports

import "go.trai.ch/crossbuild/internal/core/domain"

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration file by walking up from cwd and returns the validated
	// configuration. When no file exists the defaults are returned with Root set to cwd.
	Load(cwd string) (domain.BuildConfig, error)

	// DiscoverRoot walks up from cwd to find the directory containing the configuration file.
	// It returns cwd when no file exists.
	DiscoverRoot(cwd string) (string, error)
}
