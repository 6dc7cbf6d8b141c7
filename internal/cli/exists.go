package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// ExistsResult is the JSON payload of exists.
type ExistsResult struct {
	Property string `json:"property"`
	Exists   bool   `json:"exists"`
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "exists",
		Short:         "Report whether the property is set",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExists(rootOpts, cmd)
		},
	}
}

func runExists(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	exists, err := s.res.ExistsInStore(cmd.Context())
	if err != nil {
		return syncError("exists check failed", err)
	}

	return s.out.Success(ExistsResult{Property: s.res.Property(), Exists: exists},
		strconv.FormatBool(exists)+"\n")
}
