package domain

import (
	"maps"
	"slices"
)

// Architecture describes one build target of the toolchain.
// Values are created once when the catalog is built and never mutated afterwards.
type Architecture struct {
	// Name is the canonical name used in artifact file names.
	Name string
	// Aliases are alternative names accepted by Catalog.Resolve.
	Aliases []string
	// GOARCH is the toolchain target identifier.
	GOARCH string
	// Env holds environment overrides applied on top of the cross-compilation variables.
	Env map[string]string
	// Platforms lists the GOOS values this architecture can be built for.
	Platforms []string
	// Compressible reports whether compiled binaries can be post-compressed.
	Compressible bool
	// ContainerPlatform is the variant used in "linux/<variant>" container platforms.
	// Empty when no container image can be assembled for the architecture.
	ContainerPlatform string
	// DarwinName is the architecture name understood by the universal binary merge tool.
	// Empty when the architecture cannot be part of a universal binary.
	DarwinName string
}

// Supports reports whether the architecture can be built for platform.
func (a Architecture) Supports(platform string) bool {
	return slices.Contains(a.Platforms, platform)
}

// Names returns the canonical name followed by every alias.
func (a Architecture) Names() []string {
	return append([]string{a.Name}, a.Aliases...)
}

// clone returns a deep copy so catalog entries cannot be mutated through returned values.
func (a Architecture) clone() Architecture {
	a.Aliases = slices.Clone(a.Aliases)
	a.Platforms = slices.Clone(a.Platforms)
	a.Env = maps.Clone(a.Env)
	return a
}
