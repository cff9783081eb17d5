// Copyright © 2025 The MON authors

// Package cmd implements the mon command line interface.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/monlang/mon/diagnostic"
)

// Exit codes shared by the commands.
const (
	ExitOK       = 0
	ExitProblems = 1 // error diagnostics were reported
	ExitFatal    = 2 // bad invocation or a file could not be analyzed
)

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func fatal(err error) error {
	return &ExitError{Code: ExitFatal, Err: err}
}

// app holds the state shared by the commands of one invocation.
type app struct {
	cfg    cmdConfig
	v      *viper.Viper
	stderr io.Writer
	logger *slog.Logger
}

// NewRootCommand builds the mon command tree. Settings are read from
// flags, MON_ environment variables and the file named by --config, in
// that order of precedence.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{v: viper.New(), stderr: os.Stderr}
	for _, o := range opts {
		o(&a.cfg)
	}

	root := &cobra.Command{
		Use:   "mon",
		Short: "MON resolution and analysis engine",
		Long: `mon checks, compiles and serves MON documents.

MON is a configuration language with imports, anchors (&name), aliases
(*name), spreads (...*name), struct and enum types, and typed values.

Getting started:
  mon check config.mon          Report problems in a file
  mon check ./...               Check every .mon file under the directory
  mon compile app.mon --to yaml Print the resolved document as YAML
  mon explain LINT2002          Describe a diagnostic code
  mon lsp                       Start the language server
  mon watch .                   Re-check files as they change

Lint settings are read from .moncfg.mon (or .moncfg.yaml, .toml, .json) in
the current directory, or from the file given with --config. Any setting
can be overridden with a MON_ environment variable, e.g.
MON_MAX_NESTING_DEPTH=6.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "lint configuration file (.mon, .yaml, .toml or .json)")
	flags.String("color", "auto", `colored output: "auto", "always" or "never"`)
	flags.BoolP("verbose", "v", false, "debug logging; check also shows suppressed diagnostics")
	flags.Bool("explain", false, "follow each diagnostic with the description of its code")
	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix("MON")
	a.v.AutomaticEnv()

	root.AddCommand(
		a.checkCommand(),
		a.compileCommand(),
		explainCommand(),
		initCommand(),
		a.lspCommand(),
		a.watchCommand(),
	)
	return root
}

func (a *app) init() error {
	level := slog.LevelInfo
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	if _, err := diagnostic.ParseColorMode(a.v.GetString("color")); err != nil {
		return fatal(err)
	}
	return nil
}

// Execute runs the command tree and exits the process with the command's
// exit code. It is called by main.main.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes mon with args and returns the exit code.
func Run(args []string, stdout, stderr io.Writer, opts ...Option) int {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			fmt.Fprintln(stderr, "mon:", exit.Err)
		}
		return exit.Code
	}
	// Flag and argument errors reported by cobra.
	fmt.Fprintln(stderr, "mon:", err)
	return ExitFatal
}
