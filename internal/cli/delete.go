package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteResult is the JSON payload of delete.
type DeleteResult struct {
	Property string `json:"property"`
	Path     string `json:"path"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the property and its mirror file",
		Long: `Remove the property from the graph, then delete the mirror file.

Deleting an unset property or a missing file is not an error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd)
		},
	}
}

func runDelete(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.res.Delete(cmd.Context()); err != nil {
		return syncError("delete failed", err)
	}
	s.logger.Info("deleted", "property", s.res.Property(), "path", s.res.Path())

	return s.out.Success(DeleteResult{Property: s.res.Property(), Path: s.res.Path()},
		fmt.Sprintf("deleted %s (%s)\n", s.res.Property(), s.res.Path()))
}
