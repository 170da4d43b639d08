package domain

import "slices"

// Known platforms (GOOS values).
const (
	PlatformLinux   = "linux"
	PlatformDarwin  = "darwin"
	PlatformWindows = "windows"
)

// KnownPlatforms lists every platform the orchestrator can target, in enumeration order.
func KnownPlatforms() []string {
	return []string{PlatformLinux, PlatformDarwin, PlatformWindows}
}

// IsKnownPlatform reports whether platform is one of KnownPlatforms.
func IsKnownPlatform(platform string) bool {
	return slices.Contains(KnownPlatforms(), platform)
}

// SupportsUniversalBinary reports whether per-architecture binaries of platform can be merged
// into a single universal binary.
func SupportsUniversalBinary(platform string) bool {
	return platform == PlatformDarwin
}

// SupportsContainerImage reports whether binaries of platform can be assembled into container images.
func SupportsContainerImage(platform string) bool {
	return platform == PlatformLinux
}

// ExecutableSuffix returns the file name suffix of executables on platform.
func ExecutableSuffix(platform string) string {
	if platform == PlatformWindows {
		return ".exe"
	}
	return ""
}
