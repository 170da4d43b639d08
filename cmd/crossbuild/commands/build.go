package commands

import (
	"runtime"

	"github.com/spf13/cobra"
	"go.trai.ch/crossbuild/internal/app"
	"go.trai.ch/crossbuild/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the selected projects for every platform and architecture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			projects, _ := flags.GetStringSlice("projects")
			platforms, _ := flags.GetStringSlice("platforms")
			architectures, _ := flags.GetStringSlice("architectures")
			compress, _ := flags.GetBool("compress")
			universal, _ := flags.GetBool("universal")
			docker, _ := flags.GetBool("docker")
			tagLatest, _ := flags.GetBool("docker-tag-latest")
			push, _ := flags.GetBool("docker-push")
			repository, _ := flags.GetString("docker-repository")
			jobs, _ := flags.GetInt("jobs")
			outputMode, _ := flags.GetString("output-mode")
			ci, _ := flags.GetBool("ci")
			version, _ := flags.GetString("build-version")

			// If --ci is set, override output-mode to "linear"
			if ci {
				outputMode = "linear"
			}

			return c.app.Build(cmd.Context(), app.BuildOptions{
				Matrix: domain.Matrix{
					Projects:      projects,
					Platforms:     platforms,
					Architectures: architectures,
					Compress:      compress,
					Universal:     universal,
					Image: domain.ImageOptions{
						Enabled:    docker,
						TagLatest:  tagLatest,
						Push:       push,
						Repository: repository,
					},
				},
				Jobs:       jobs,
				OutputMode: outputMode,
				Version:    version,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceP("projects", "i", nil, "Projects to build (default: all configured projects)")
	flags.StringSliceP("platforms", "p", nil, "Platforms to build for (default: all configured platforms)")
	flags.StringSliceP("architectures", "a", nil, "Architectures or aliases to build for (default: all supported)")
	flags.BoolP("compress", "c", false, "Compress binaries after compiling")
	flags.Bool("universal", false, "Merge darwin binaries into a universal binary")
	flags.Bool("docker", false, "Build a multi-platform container image per project")
	flags.Bool("docker-tag-latest", false, "Also tag container images as latest")
	flags.Bool("docker-push", false, "Push container images after building")
	flags.String("docker-repository", "", "Container image repository (default: from configuration)")
	flags.IntP("jobs", "j", runtime.NumCPU(), "Number of tasks to run in parallel after the first compile")
	flags.StringP("output-mode", "o", "auto", "Output mode: auto, tui, or linear")
	flags.Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
	flags.String("build-version", "", "Version stamped into binaries and image tags (default: git describe)")
	return cmd
}
