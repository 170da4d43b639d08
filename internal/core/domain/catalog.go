package domain

import "go.trai.ch/zerr"

// Catalog is the registry of known architectures, indexed by canonical name and alias.
// It is populated during construction and read-only afterwards, so lookups need no locking.
type Catalog struct {
	order []string
	byKey map[string]Architecture
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byKey: make(map[string]Architecture),
	}
}

// Register adds an architecture under its canonical name and every alias.
// It fails without modifying the catalog if any of those names is already taken.
func (c *Catalog) Register(arch Architecture) error {
	for _, name := range arch.Names() {
		if _, exists := c.byKey[name]; exists {
			err := zerr.Wrap(ErrDuplicateArchitecture, "failed to register architecture")
			return zerr.With(zerr.With(err, "architecture", arch.Name), "name", name)
		}
	}

	arch = arch.clone()
	for _, name := range arch.Names() {
		c.byKey[name] = arch
	}
	c.order = append(c.order, arch.Name)
	return nil
}

// Resolve looks up an architecture by canonical name or alias.
func (c *Catalog) Resolve(name string) (Architecture, error) {
	arch, ok := c.byKey[name]
	if !ok {
		return Architecture{}, zerr.With(zerr.Wrap(ErrUnknownArchitecture, "failed to resolve architecture"), "architecture", name)
	}
	return arch.clone(), nil
}

// All returns every architecture in registration order.
func (c *Catalog) All() []Architecture {
	out := make([]Architecture, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byKey[name].clone())
	}
	return out
}

// ListForPlatform returns the architectures that support platform, in registration order.
func (c *Catalog) ListForPlatform(platform string) []Architecture {
	var out []Architecture
	for _, name := range c.order {
		arch := c.byKey[name]
		if arch.Supports(platform) {
			out = append(out, arch.clone())
		}
	}
	return out
}

// Len returns the number of registered architectures.
func (c *Catalog) Len() int {
	return len(c.order)
}

// DefaultCatalog returns a catalog populated with the built-in architecture table.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, arch := range defaultArchitectures() {
		if err := c.Register(arch); err != nil {
			// The built-in table is static; a collision is a programming error.
			panic(err)
		}
	}
	return c
}

func defaultArchitectures() []Architecture {
	all := []string{PlatformLinux, PlatformDarwin, PlatformWindows}
	linuxWindows := []string{PlatformLinux, PlatformWindows}
	linux := []string{PlatformLinux}

	return []Architecture{
		{
			Name: "amd64", Aliases: []string{"x86_64", "x64"}, GOARCH: "amd64",
			Platforms: all, Compressible: true, ContainerPlatform: "amd64", DarwinName: "x86_64",
		},
		{
			Name: "386", Aliases: []string{"i386", "x86"}, GOARCH: "386",
			Platforms: linuxWindows, Compressible: true, ContainerPlatform: "386",
		},
		{
			Name: "arm64", Aliases: []string{"aarch64"}, GOARCH: "arm64",
			Platforms: all, Compressible: true, ContainerPlatform: "arm64", DarwinName: "arm64",
		},
		{
			Name: "arm32v5", Aliases: []string{"armv5"}, GOARCH: "arm", Env: map[string]string{"GOARM": "5"},
			Platforms: linux, Compressible: true, ContainerPlatform: "arm/v5",
		},
		{
			Name: "arm32v6", Aliases: []string{"armv6"}, GOARCH: "arm", Env: map[string]string{"GOARM": "6"},
			Platforms: linux, Compressible: true, ContainerPlatform: "arm/v6",
		},
		{
			Name: "arm32v7", Aliases: []string{"armv7", "armhf"}, GOARCH: "arm", Env: map[string]string{"GOARM": "7"},
			Platforms: linux, Compressible: true, ContainerPlatform: "arm/v7",
		},
		{Name: "mips", GOARCH: "mips", Platforms: linux, Compressible: true},
		{
			Name: "mips-softfloat", GOARCH: "mips", Env: map[string]string{"GOMIPS": "softfloat"},
			Platforms: linux, Compressible: true,
		},
		{Name: "mipsle", GOARCH: "mipsle", Platforms: linux, Compressible: true},
		{
			Name: "mipsle-softfloat", GOARCH: "mipsle", Env: map[string]string{"GOMIPS": "softfloat"},
			Platforms: linux, Compressible: true,
		},
		// UPX cannot pack 64-bit MIPS binaries.
		{Name: "mips64", GOARCH: "mips64", Platforms: linux},
		{Name: "mips64le", GOARCH: "mips64le", Platforms: linux},
	}
}
