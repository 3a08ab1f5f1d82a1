package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sprig/internal/app"
)

func (c *CLI) newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall specs...",
		Short: "Remove installed packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			all, _ := cmd.Flags().GetBool("all")
			return c.app.Uninstall(cmd.Context(), args, app.UninstallOptions{
				Force: force,
				All:   all,
			})
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Remove packages even when others depend on them")
	cmd.Flags().BoolP("all", "a", false, "Remove every package a spec matches")
	return cmd
}

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build stages and downloaded sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources, _ := cmd.Flags().GetBool("sources")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}

			switch {
			case all:
				opts.Stage = true
				opts.Sources = true
			case sources:
				opts.Sources = true
			default:
				// Default behavior: clean build stages
				opts.Stage = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("sources", "s", false, "Clean the source download cache")
	cmd.Flags().BoolP("all", "a", false, "Clean build stages and the source cache")

	return cmd
}
