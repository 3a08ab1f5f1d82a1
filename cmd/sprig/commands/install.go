package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sprig/internal/app"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [specs...]",
		Short: "Build and install the given specs and their dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fresh, _ := cmd.Flags().GetBool("fresh")
			outputMode, _ := cmd.Flags().GetString("output-mode")
			ci, _ := cmd.Flags().GetBool("ci")
			jobs, _ := cmd.Flags().GetInt("jobs")
			keepStage, _ := cmd.Flags().GetBool("keep-stage")

			// If --ci is set, override output-mode to "linear"
			if ci {
				outputMode = "linear"
			}

			return c.app.Install(cmd.Context(), args, app.InstallOptions{
				ConcretizeOptions: app.ConcretizeOptions{Fresh: fresh},
				OutputMode:        outputMode,
				Jobs:              jobs,
				KeepStage:         keepStage,
			})
		},
	}
	cmd.Flags().Bool("fresh", false, "Build everything instead of reusing installed packages")
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, tui, or linear")
	cmd.Flags().Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
	cmd.Flags().IntP("jobs", "j", 0, "Number of packages built concurrently (default from config)")
	cmd.Flags().Bool("keep-stage", false, "Keep build directories of successful builds")
	return cmd
}
