// Package detector selects the output mode from the terminal and CI environment.
package detector

import (
	"os"

	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive TUI renderer.
	ModeTUI
	// ModeLinear forces the linear CI renderer.
	ModeLinear
)

// ErrUnknownOutputMode is returned when an output mode flag is not recognized.
var ErrUnknownOutputMode = zerr.New("unknown output mode")

// String returns the flag value naming the mode.
func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended output mode for the current process.
// It checks whether stdout is a TTY and whether the CI environment variable is set.
func DetectEnvironment() OutputMode {
	return Detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv("CI"))
}

// Detect returns the recommended output mode for the given terminal state and CI variable value.
func Detect(isTTY bool, ci string) OutputMode {
	isCI := ci == "true" || ci == "1"
	if !isTTY || isCI {
		return ModeLinear
	}
	return ModeTUI
}

// ParseMode converts a flag value ("auto", "tui", "linear", "ci" or empty) to an OutputMode.
func ParseMode(flag string) (OutputMode, error) {
	switch flag {
	case "tui":
		return ModeTUI, nil
	case "linear", "ci":
		return ModeLinear, nil
	case "auto", "":
		return ModeAuto, nil
	default:
		return ModeAuto, zerr.With(zerr.Wrap(ErrUnknownOutputMode, "failed to parse output mode"), "mode", flag)
	}
}

// ResolveMode applies the user override to the auto-detected mode.
func ResolveMode(autoDetected, override OutputMode) OutputMode {
	if override == ModeAuto {
		return autoDetected
	}
	return override
}
