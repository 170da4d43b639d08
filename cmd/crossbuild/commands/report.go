package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the recorded outcome of the last build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Report(cmd.Context())
		},
	}
}
