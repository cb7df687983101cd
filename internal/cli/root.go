// Package cli implements the agentdeck command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/agentdeck/internal/app"
)

// Version is the build version, set with -ldflags.
var Version = "dev"

// Options configures a command tree. Zero values use the process streams
// and environment.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Environ replaces the process environment for configuration.
	Environ []string

	// LogOutput replaces stderr and the log file for application logs.
	LogOutput io.Writer
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	config   string
	logLevel string
}

type cli struct {
	opts  Options
	flags globalFlags
}

var logLevels = []string{"debug", "info", "warn", "error"}

// NewRootCommand builds the agentdeck command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	c := &cli{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "agentdeck",
		Short: "Discover, enable and render Lua dashboard components",
		Long: `agentdeck discovers component units in the components directory,
loads each one in a sandboxed Lua state and serves the enabled ones on a
dashboard.

Example:
  agentdeck serve --addr :8501
  agentdeck list
  agentdeck enable "Hello World"
  agentdeck settings set API_KEY`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.validateFlags()
		},
	}
	rootCmd.SetIn(opts.Stdin)
	rootCmd.SetOut(opts.Stdout)
	rootCmd.SetErr(opts.Stderr)

	rootCmd.PersistentFlags().StringVarP(&c.flags.config, "config", "c", "", "config file path (default agentdeck.toml)")
	rootCmd.PersistentFlags().StringVar(&c.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(c.newServeCommand())
	rootCmd.AddCommand(c.newListCommand())
	rootCmd.AddCommand(c.newEnableCommand())
	rootCmd.AddCommand(c.newDisableCommand())
	rootCmd.AddCommand(c.newRenderCommand())
	rootCmd.AddCommand(c.newRescanCommand())
	rootCmd.AddCommand(c.newSettingsCommand())
	rootCmd.AddCommand(c.newArtifactsCommand())
	rootCmd.AddCommand(c.newVersionCommand())

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, opts Options) int {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) validateFlags() error {
	if c.flags.logLevel == "" {
		return nil
	}
	for _, l := range logLevels {
		if strings.EqualFold(c.flags.logLevel, l) {
			return nil
		}
	}
	return fmt.Errorf("invalid log level %q (must be %s)", c.flags.logLevel, strings.Join(logLevels, ", "))
}

// open constructs the application and runs discovery. The caller closes it.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	a, err := app.New(app.Options{
		ConfigPath: c.flags.config,
		LogLevel:   c.flags.logLevel,
		Environ:    c.opts.Environ,
		LogOutput:  c.opts.LogOutput,
	})
	if err != nil {
		return nil, err
	}
	a.Start(ctx)
	return a, nil
}

// withApp runs fn against a started application and closes it afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (c *cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentdeck version %s\n", Version)
		},
	}
}
