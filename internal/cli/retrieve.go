package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RetrieveResult is the JSON payload of retrieve.
type RetrieveResult struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// NewRetrieveCommand creates the retrieve command.
func NewRetrieveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve",
		Short: "Print the property value",
		Long: `Print the value held by the property.

The graph is read, not the file. Exits 1 when the property is not set or
cannot be read as a string.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrieve(rootOpts, cmd)
		},
	}
}

func runRetrieve(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	value, ok := s.res.Retrieve(cmd.Context())
	if !ok {
		return NewExitError(ExitFailure, CodeAbsent, fmt.Sprintf("property %s is not set", s.res.Property()))
	}

	return s.out.Success(RetrieveResult{Property: s.res.Property(), Value: value}, value)
}
