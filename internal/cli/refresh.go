package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rewrite the mirror file from the property",
		Long: `Bring the mirror file in line with the property without writing the graph.

A missing or edited file is rewritten; an unset property removes the file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(rootOpts, cmd)
		},
	}
}

func runRefresh(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	changed, err := s.res.Refresh(cmd.Context())
	if err != nil {
		return syncError("refresh failed", err)
	}

	return s.out.Success(StoreResult{
		Property: s.res.Property(),
		Path:     s.res.Path(),
		Changed:  changed,
	}, fmt.Sprintf("refreshed %s (%s)\n", s.res.Path(), changedWord(changed)))
}
