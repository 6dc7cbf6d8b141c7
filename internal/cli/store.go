package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// StoreOptions holds flags for the store command.
type StoreOptions struct {
	*RootOptions
	From string
}

// StoreResult is the JSON payload of store and refresh.
type StoreResult struct {
	Property string `json:"property"`
	Path     string `json:"path"`
	Changed  bool   `json:"changed"`
}

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store [data]",
		Short: "Store data in the property and mirror it to the file",
		Long: `Store data in the configured property, then rewrite the mirror file if
its content differs from the persisted value.

Data comes from the argument, from --from <file>, or from stdin.

Examples:
  propsync store --property Gemfile --file ./Gemfile "gem 'rack'"
  propsync store --from Gemfile.new
  cat Gemfile.new | propsync store --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", `read data from a file ("-" for stdin)`)

	return cmd
}

func runStore(opts *StoreOptions, args []string, cmd *cobra.Command) error {
	data, err := readStoreInput(opts.From, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	changed, err := s.res.Store(cmd.Context(), data)
	if err != nil {
		return syncError("store failed", err)
	}
	s.logger.Info("stored", "property", s.res.Property(), "path", s.res.Path(), "changed", changed)

	return s.out.Success(StoreResult{
		Property: s.res.Property(),
		Path:     s.res.Path(),
		Changed:  changed,
	}, fmt.Sprintf("stored %s -> %s (%s)\n", s.res.Property(), s.res.Path(), changedWord(changed)))
}

func readStoreInput(from string, args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		if from != "" {
			return "", NewExitError(ExitCommandError, CodeInput, "data argument and --from are mutually exclusive")
		}
		return args[0], nil
	}

	if from == "" || from == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", WrapExitError(ExitCommandError, CodeInput, "failed to read stdin", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(from)
	if err != nil {
		return "", WrapExitError(ExitCommandError, CodeInput, "failed to read input file", err)
	}
	return string(data), nil
}

func changedWord(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}
