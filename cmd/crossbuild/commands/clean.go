package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/crossbuild/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build artifacts and recorded build state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dist, _ := cmd.Flags().GetBool("dist")
			state, _ := cmd.Flags().GetBool("state")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{
				Dist:  dist || all,
				State: state || all,
			}
			if !opts.Dist && !opts.State {
				// Default behavior: clean build artifacts
				opts.Dist = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("dist", "d", false, "Clean build artifacts")
	cmd.Flags().BoolP("state", "s", false, "Clean the recorded build state")
	cmd.Flags().BoolP("all", "a", false, "Clean build artifacts and build state")

	return cmd
}
