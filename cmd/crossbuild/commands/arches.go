package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newArchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "arches [platform]",
		Aliases: []string{"architectures"},
		Short:   "List the known architectures",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var platform string
			if len(args) == 1 {
				platform = args[0]
			}
			return c.app.Architectures(cmd.Context(), platform)
		},
	}
}
