package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/backend"
	"github.com/roach88/propsync/internal/config"
	"github.com/roach88/propsync/internal/graph"
)

// NodeResult is the JSON payload of node create and node reference.
type NodeResult struct {
	Node string `json:"node"`
}

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create and inspect graph nodes",
		Long: `Create and inspect graph nodes. Only the graph settings are read; the
resource section may be incomplete.

Pass a created id to --node (or resource.node) to keep a property on a node
other than the reference node.`,
	}

	cmd.AddCommand(newNodeCommand(rootOpts, "create", "Create an empty node and print its id",
		func(ctx context.Context, g graph.Graph) (graph.NodeID, error) { return g.CreateNode(ctx) }))
	cmd.AddCommand(newNodeCommand(rootOpts, "reference", "Print the reference node id",
		func(ctx context.Context, g graph.Graph) (graph.NodeID, error) { return g.ReferenceNode(ctx) }))
	return cmd
}

func newNodeCommand(rootOpts *RootOptions, use, short string, fn func(context.Context, graph.Graph) (graph.NodeID, error)) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(rootOpts, cmd, fn)
		},
	}
}

func runNode(opts *RootOptions, cmd *cobra.Command, fn func(context.Context, graph.Graph) (graph.NodeID, error)) error {
	cfg, err := config.LoadGraph(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, CodeConfig, "failed to load configuration", err)
	}

	g, err := backend.Open(cfg.Backend, cfg.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, CodeGraph, "failed to open graph", err)
	}
	defer g.Close()

	id, err := fn(cmd.Context(), g)
	if err != nil {
		return WrapExitError(ExitCommandError, CodeGraph, cmd.Name()+" failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(NodeResult{Node: string(id)}, fmt.Sprintf("%s\n", id))
}
