// Package commands implements the CLI commands for sprig.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/sprig/internal/app"
	"go.trai.ch/sprig/internal/build"
	"go.trai.ch/sprig/internal/core/ports"
)

// CLI represents the command line interface for sprig.
type CLI struct {
	app     Application
	logger  ports.Logger
	rootCmd *cobra.Command
	json    bool
}

// Application represents the application logic interface.
type Application interface {
	Spec(ctx context.Context, exprs []string, opts app.SpecOptions, w io.Writer) error
	Install(ctx context.Context, exprs []string, opts app.InstallOptions) error
	Find(ctx context.Context, exprs []string, opts app.FindOptions, w io.Writer) error
	Uninstall(ctx context.Context, exprs []string, opts app.UninstallOptions) error
	Verify(ctx context.Context, exprs []string, w io.Writer) error
	Providers(ctx context.Context, virtual string, w io.Writer) error
	Clean(ctx context.Context, opts app.CleanOptions) error
}

// jsonLogger is implemented by loggers that can switch to JSON records.
type jsonLogger interface {
	SetJSON(enable bool)
}

// New creates a new CLI instance with the given app. log may be nil.
func New(a Application, log ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:           "sprig",
		Short:         "Build and install HPC software from source",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		logger:  log,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&c.json, "json", false, "Write logs and listings as JSON")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		if l, ok := c.logger.(jsonLogger); ok && c.json {
			l.SetJSON(true)
		}
	}

	rootCmd.AddCommand(c.newSpecCmd())
	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newFindCmd())
	rootCmd.AddCommand(c.newUninstallCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newProvidersCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
