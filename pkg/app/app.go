// Package app builds a service command line on Cobra, binds its flags
// through grouped pflag sets, and layers configuration from file,
// environment, and flags with Viper.
//
// A service assembles itself with the functional options and hands over an
// options object implementing CliOptions:
//
//	app.NewApp(
//	    app.WithName("docchat"),
//	    app.WithDescription(desc),
//	    app.WithOptions(opts),
//	    app.WithRunFunc(run),
//	).Run()
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
)

// RunFunc is the application entry point, invoked once configuration is
// loaded and validated.
type RunFunc func() error

// App ties a cobra command to an options object and a run function.
type App struct {
	name        string
	description string
	options     CliOptions
	runFunc     RunFunc
	silence     bool
	noConfig    bool
	cmd         *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithName sets the application name. It doubles as the config file base
// name and the environment variable prefix.
func WithName(name string) Option {
	return func(a *App) { a.name = name }
}

// WithDescription sets the long help text. Its first line becomes the short
// description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions binds the aggregate options object to the command flags.
func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the application entry point.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithSilence suppresses cobra's own error printing.
func WithSilence() Option {
	return func(a *App) { a.silence = true }
}

// WithNoConfig skips config file loading. Flags and defaults still apply.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// NewApp builds the application command from the given options.
func NewApp(opts ...Option) *App {
	a := &App{name: filepath.Base(os.Args[0])}
	for _, o := range opts {
		o(a)
	}

	cmd := &cobra.Command{
		Use:          a.name,
		Short:        firstLine(a.description),
		Long:         a.description,
		Args:         cobra.NoArgs,
		RunE:         a.run,
		SilenceUsage: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	if a.silence {
		cmd.SilenceErrors = true
	}

	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to the config file")
	}
	version.AddFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)

	if a.options != nil {
		named := a.options.Flags()
		for _, section := range named.Order {
			cmd.Flags().AddFlagSet(named.FlagSets[section])
		}
	}
	cmd.Flags().SortFlags = true

	a.cmd = cmd
	return a
}

func (a *App) run(cmd *cobra.Command, _ []string) error {
	version.PrintAndExitIfRequested()

	if !a.noConfig {
		if err := loadConfig(cmd, a.name, a.options); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// Run executes the command and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command exposes the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
