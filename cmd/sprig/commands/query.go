package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sprig/internal/app"
)

func (c *CLI) newFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [specs...]",
		Short: "List installed packages matching the given specs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit, _ := cmd.Flags().GetBool("explicit")
			failed, _ := cmd.Flags().GetBool("failed")
			installing, _ := cmd.Flags().GetBool("installing")

			return c.app.Find(cmd.Context(), args, app.FindOptions{
				Explicit:   explicit,
				Failed:     failed,
				Installing: installing,
				JSON:       c.json,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolP("explicit", "x", false, "Only list packages installed on request")
	cmd.Flags().Bool("failed", false, "List failed installs instead")
	cmd.Flags().Bool("installing", false, "List unfinished installs instead")
	cmd.MarkFlagsMutuallyExclusive("failed", "installing")
	return cmd
}

func (c *CLI) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [specs...]",
		Short: "Check installed packages for modified files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Verify(cmd.Context(), args, cmd.OutOrStdout())
		},
	}
}

func (c *CLI) newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers [virtual]",
		Short: "List packages providing a virtual package",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			virtual := ""
			if len(args) == 1 {
				virtual = args[0]
			}
			return c.app.Providers(cmd.Context(), virtual, cmd.OutOrStdout())
		},
	}
}
