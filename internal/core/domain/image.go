package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// ImageOptions configures container image assembly.
type ImageOptions struct {
	// Enabled requests image tasks in a build matrix.
	Enabled bool
	// TagLatest adds a ":latest" tag next to the version tag.
	TagLatest bool
	// Push publishes the image after building.
	Push bool
	// Repository is the image name prefix, e.g. "ghcr.io/acme/app".
	Repository string
	// Version is the tag applied to every image.
	Version string
	// BuildArg is the build argument receiving the project name. Defaults to "SIDE".
	BuildArg string
	// Context is the build context directory, resolved against the workspace root. Defaults to ".".
	Context string
	// Tool is the container CLI executable. Defaults to "docker".
	Tool string
}

// ImageBuildTask builds a multi-platform container image from the linux binaries of one project.
// It produces no artifacts on disk.
type ImageBuildTask struct {
	artifacts

	project string
	tags    []string
}

// NewImageBuildTask creates a task that assembles an image from the outputs of compiles.
// Every compile must target the same project on a platform with image support, and every
// architecture must carry a container platform.
func NewImageBuildTask(compiles []*CompileTask, opts ImageOptions) (*ImageBuildTask, error) {
	project, platform, err := commonTarget(compiles)
	if err != nil {
		return nil, err
	}
	if !SupportsContainerImage(platform) {
		err := zerr.Wrap(ErrUnsupportedPlatform, "cannot build container image")
		return nil, zerr.With(err, "platform", platform)
	}
	if opts.Repository == "" {
		return nil, zerr.With(zerr.Wrap(ErrMissingRepository, "cannot build container image"), "project", project)
	}

	deps := make([]string, 0, len(compiles))
	platforms := make([]string, 0, len(compiles))
	for _, c := range compiles {
		if c.arch.ContainerPlatform == "" {
			err := zerr.Wrap(ErrMissingPlatformMetadata, "cannot build container image")
			return nil, zerr.With(err, "architecture", c.arch.Name)
		}
		deps = append(deps, c.Output())
		platforms = append(platforms, platform+"/"+c.arch.ContainerPlatform)
	}

	tool := orDefault(opts.Tool, "docker")
	buildArg := orDefault(opts.BuildArg, "SIDE")
	version := orDefault(opts.Version, "dev")

	root := compiles[0].command.Dir
	buildContext := orDefault(opts.Context, ".")

	image := strings.TrimSuffix(opts.Repository, "/") + "/" + project
	tags := []string{image + ":" + version}
	if opts.TagLatest && version != "latest" {
		tags = append(tags, image+":latest")
	}

	args := []string{
		"buildx", "build",
		"--build-arg", buildArg + "=" + project,
		"--platform", strings.Join(platforms, ","),
	}
	for _, tag := range tags {
		args = append(args, "-t", tag)
	}
	if opts.Push {
		args = append(args, "--push")
	}
	args = append(args, buildContext)

	return &ImageBuildTask{
		artifacts: artifacts{
			name:    "image " + image,
			kind:    KindImage,
			deps:    deps,
			command: Command{
				Path: tool,
				Args: args,
				Dir:  root,
			},
		},
		project: project,
		tags:    tags,
	}, nil
}

// Project returns the project the image is built for.
func (t *ImageBuildTask) Project() string { return t.project }

// Tags returns the image references the task applies.
func (t *ImageBuildTask) Tags() []string { return append([]string(nil), t.tags...) }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
