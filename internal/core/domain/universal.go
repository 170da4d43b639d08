package domain

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// MergeOptions configures the universal binary merge tool.
type MergeOptions struct {
	// Tool is the merge executable. Defaults to "lipo".
	Tool string
}

// UniversalBinaryTask merges the darwin binaries of one project into a universal binary.
type UniversalBinaryTask struct {
	artifacts

	project string
}

// NewUniversalBinaryTask creates a task that merges the outputs of compiles.
// Every compile must target the same project on a platform with universal binary support,
// and every architecture must carry a darwin architecture name.
func NewUniversalBinaryTask(compiles []*CompileTask, opts MergeOptions) (*UniversalBinaryTask, error) {
	project, platform, err := commonTarget(compiles)
	if err != nil {
		return nil, err
	}
	if !SupportsUniversalBinary(platform) {
		err := zerr.Wrap(ErrUnsupportedPlatform, "cannot merge universal binary")
		return nil, zerr.With(err, "platform", platform)
	}

	inputs := make([]string, 0, len(compiles))
	for _, c := range compiles {
		if c.arch.DarwinName == "" {
			err := zerr.Wrap(ErrMissingPlatformMetadata, "cannot merge universal binary")
			return nil, zerr.With(err, "architecture", c.arch.Name)
		}
		inputs = append(inputs, c.Output())
	}

	tool := opts.Tool
	if tool == "" {
		tool = "lipo"
	}

	first := compiles[0]
	output := filepath.Join(filepath.Dir(first.Output()), UniversalName(project))
	args := append([]string{"-create", "-output", output}, inputs...)

	return &UniversalBinaryTask{
		artifacts: artifacts{
			name:    "universal " + UniversalName(project),
			kind:    KindUniversal,
			deps:    inputs,
			outputs: []string{output},
			command: Command{
				Path: tool,
				Args: args,
				Dir:  first.command.Dir,
			},
		},
		project: project,
	}, nil
}

// Project returns the project whose binaries are merged.
func (t *UniversalBinaryTask) Project() string { return t.project }

// commonTarget checks that compiles is non-empty and targets a single project and platform.
func commonTarget(compiles []*CompileTask) (string, string, error) {
	if len(compiles) == 0 {
		return "", "", ErrEmptyMerge
	}
	project, platform := compiles[0].project, compiles[0].platform
	for _, c := range compiles[1:] {
		if c.project != project {
			err := zerr.Wrap(ErrMixedProjects, "cannot combine outputs")
			return "", "", zerr.With(zerr.With(err, "project", project), "other", c.project)
		}
		if c.platform != platform {
			err := zerr.Wrap(ErrMixedPlatforms, "cannot combine outputs")
			return "", "", zerr.With(zerr.With(err, "platform", platform), "other", c.platform)
		}
	}
	return project, platform, nil
}
