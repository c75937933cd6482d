// Package cli provides the apidoc command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phpwdk/apidoc/internal/logging"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// app carries state shared by all subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logFile    string
	logLevel   string

	logger     *slog.Logger
	logCleanup func()
}

// Execute creates and runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd, a := newRootCommand(os.Stdout, os.Stderr)
	defer a.close()

	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "apidoc",
		Short:         "Assemble API documentation from Go doc comments",
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setupLogging()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to apidoc.yaml")
	pf.StringVar(&a.logFile, "log-file", "", "also write logs to this file")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newCollectCommand(a),
		newWatchCommand(a),
		newServeCommand(a),
		newVersionCommand(a),
	)
	return rootCmd, a
}

func (a *app) setupLogging() error {
	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	logger, cleanup, err := logging.SetupWriter(a.stderr, a.logFile, level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger
	a.logCleanup = cleanup
	return nil
}

func (a *app) close() {
	if a.logCleanup != nil {
		a.logCleanup()
		a.logCleanup = nil
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the apidoc version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.stdout, "apidoc %s\n", version)
			return err
		},
	}
}
