package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sprig/internal/app"
)

func (c *CLI) newSpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spec [specs...]",
		Aliases: []string{"concretize"},
		Short:   "Show what would be installed for the given specs",
		Long: "Concretize the given specs, or the environment specs of sprig.yaml when none\n" +
			"are given, and print the resulting dependency tree. [+] marks installed\n" +
			"packages, [-] packages that would be built.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fresh, _ := cmd.Flags().GetBool("fresh")
			return c.app.Spec(cmd.Context(), args, app.SpecOptions{
				ConcretizeOptions: app.ConcretizeOptions{Fresh: fresh},
				JSON:              c.json,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("fresh", false, "Ignore installed packages when concretizing")
	return cmd
}
