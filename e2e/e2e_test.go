//go:build e2e

package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var crossbuildBinary string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "crossbuild-e2e-*")
	if err != nil {
		panic(err)
	}

	crossbuildBinary = filepath.Join(tmpDir, "crossbuild")

	//nolint:gosec // Building binary with static arguments, not user input
	cmd := exec.Command("go", "build", "-o", crossbuildBinary, "./cmd/crossbuild")
	cmd.Dir = ".."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		panic("failed to build crossbuild binary: " + err.Error())
	}

	exitCode := m.Run()

	_ = os.RemoveAll(tmpDir)

	os.Exit(exitCode)
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata",
		Setup: setupE2E,
	})
}

// setupE2E puts the crossbuild binary and the script's fake toolchain in bin/ on PATH.
func setupE2E(env *testscript.Env) error {
	env.Setenv("NO_COLOR", "1")
	env.Setenv("CI", "true")

	toolDir := filepath.Join(env.WorkDir, "bin")
	if entries, err := os.ReadDir(toolDir); err == nil {
		for _, e := range entries {
			if err := os.Chmod(filepath.Join(toolDir, e.Name()), 0o755); err != nil { //nolint:gosec // test shims
				return err
			}
		}
	}

	binDir := filepath.Dir(crossbuildBinary)
	currentPath := env.Getenv("PATH")
	env.Setenv("PATH", toolDir+string(os.PathListSeparator)+binDir+string(os.PathListSeparator)+currentPath)

	homeDir := filepath.Join(env.WorkDir, ".home")
	if err := os.MkdirAll(homeDir, 0o750); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)

	return nil
}
