// Package cli implements the propsync command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the propsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propsync",
		Short: "propsync - mirror a graph property into a file",
		Long: `Keep a string property on a graph node and a file on disk in step.

The graph is the system of record. Every store commits the property first and
then rewrites the file only when its content differs from the persisted value.
Deleting removes both.

Configuration is read from --config (or ./propsync.yaml), PROPSYNC_*
environment variables and the flags below, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, CodeUsage,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "configuration file (default ./propsync.yaml)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	addConfigFlags(flags)

	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewRetrieveCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewNodeCommand(opts))

	return cmd
}

// addConfigFlags registers the flags that override configuration keys.
// Only flags set on the command line take effect.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.String("backend", "", "graph backend (sqlite|badger)")
	flags.String("db", "", "graph database path (SQLite file or Badger directory)")
	flags.String("node", "", "graph node id from 'propsync node create' (default: reference node)")
	flags.String("property", "", "property key")
	flags.String("file", "", "mirror file path")
	flags.Bool("lock-aware", false, "remove <file>.lock after every mutation")
	flags.String("normalize", "", "unicode normalization of stored values (nfc|nfd)")
	flags.String("log-level", "", "log level (DEBUG|INFO|WARN|ERROR)")
	flags.String("log-format", "", "log format (text|json)")
	flags.Duration("debounce", 0, "watch debounce interval")
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported once here, in the selected output format.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	ReportError(opts.Format, stdout, stderr, err)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
