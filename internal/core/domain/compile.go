package domain

import (
	"maps"
	"path/filepath"

	"go.trai.ch/zerr"
)

// CompileOptions configures how CompileTasks invoke the toolchain.
type CompileOptions struct {
	// Toolchain is the compiler executable. Defaults to "go".
	Toolchain string
	// Root is the absolute workspace root that project directories live under.
	// Empty means the current directory.
	Root string
	// DistDir is the directory binaries are written to, relative to Root.
	DistDir string
	// LDFlags is passed verbatim to -ldflags.
	LDFlags string
	// Trimpath adds -trimpath to the build.
	Trimpath bool
	// Env holds extra environment entries applied before the architecture overrides.
	Env map[string]string
}

// CompileTask cross-compiles one project for one platform and architecture.
type CompileTask struct {
	artifacts

	project  string
	platform string
	arch     Architecture
}

// NewCompileTask creates a CompileTask. It fails with ErrUnsupportedPlatform when the
// architecture cannot be built for the platform.
func NewCompileTask(project, platform string, arch Architecture, opts CompileOptions) (*CompileTask, error) {
	if !arch.Supports(platform) {
		err := zerr.Wrap(ErrUnsupportedPlatform, "cannot compile for platform")
		return nil, zerr.With(zerr.With(err, "architecture", arch.Name), "platform", platform)
	}

	toolchain := opts.Toolchain
	if toolchain == "" {
		toolchain = "go"
	}
	distDir := opts.DistDir
	if distDir == "" {
		distDir = DefaultDistDir
	}

	source := filepath.Join(opts.Root, project)
	output := filepath.Join(opts.Root, distDir, ArtifactName(project, platform, arch.Name))

	args := []string{"build"}
	if opts.Trimpath {
		args = append(args, "-trimpath")
	}
	if opts.LDFlags != "" {
		args = append(args, "-ldflags", opts.LDFlags)
	}
	args = append(args, "-o", output, "./"+project)

	env := map[string]string{
		"CGO_ENABLED": "0",
		"GOOS":        platform,
		"GOARCH":      arch.GOARCH,
	}
	maps.Copy(env, opts.Env)
	maps.Copy(env, arch.Env)

	return &CompileTask{
		artifacts: artifacts{
			name:    "compile " + ArtifactName(project, platform, arch.Name),
			kind:    KindCompile,
			deps:    []string{source},
			outputs: []string{output},
			command: Command{
				Path: toolchain,
				Args: args,
				Env:  env,
				Dir:  opts.Root,
			},
		},
		project:  project,
		platform: platform,
		arch:     arch.clone(),
	}, nil
}

// Project returns the project being compiled.
func (t *CompileTask) Project() string { return t.project }

// Platform returns the target platform.
func (t *CompileTask) Platform() string { return t.platform }

// Architecture returns the target architecture.
func (t *CompileTask) Architecture() Architecture { return t.arch.clone() }

// Output returns the path of the compiled binary.
func (t *CompileTask) Output() string { return t.outputs[0] }
