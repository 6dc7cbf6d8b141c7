package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/backend"
	"github.com/roach88/propsync/internal/config"
	"github.com/roach88/propsync/internal/graph"
	"github.com/roach88/propsync/internal/mirror"
	"github.com/roach88/propsync/internal/property"
	"github.com/roach88/propsync/internal/resource"
)

// session is an opened graph plus the resource configured on top of it.
type session struct {
	cfg    *config.Config
	graph  graph.Graph
	node   graph.NodeID
	res    *resource.Resource
	logger *slog.Logger
	out    *OutputFormatter
}

// loadConfig loads configuration using the command's flags.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, CodeConfig, "failed to load configuration", err)
	}
	return cfg, nil
}

// openSession loads configuration, opens the graph and builds the resource.
// The caller must Close the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging, opts.Verbose)
	ctx := cmd.Context()

	logger.Debug("opening graph", "backend", cfg.Graph.Backend, "path", cfg.Graph.Path)
	g, err := backend.Open(cfg.Graph.Backend, cfg.Graph.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, CodeGraph, "failed to open graph", err)
	}

	node, err := resolveNode(ctx, g, cfg.Resource.Node)
	if err != nil {
		g.Close()
		return nil, WrapExitError(ExitCommandError, CodeGraph, "failed to resolve node", err)
	}

	normalize, err := property.NormalizationByName(cfg.Resource.Normalize)
	if err != nil {
		g.Close()
		return nil, WrapExitError(ExitCommandError, CodeConfig, "invalid normalization", err)
	}
	mode, err := cfg.Resource.Mode()
	if err != nil {
		g.Close()
		return nil, WrapExitError(ExitCommandError, CodeConfig, "invalid file mode", err)
	}

	props := property.New(g, node, normalize, property.WithLogger(logger))
	m := mirror.New(cfg.Resource.File, mode)

	newResource := resource.New
	if cfg.Resource.LockAware {
		newResource = resource.NewLockAware
	}
	res := newResource(props, cfg.Resource.Property, m, resource.WithLogger(logger))

	return &session{
		cfg:    cfg,
		graph:  g,
		node:   node,
		res:    res,
		logger: logger,
		out:    &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

// Close closes the graph, logging any failure.
func (s *session) Close() {
	if err := s.graph.Close(); err != nil {
		s.logger.Error("error closing graph", "error", err)
	}
}

// resolveNode returns the configured node, or the reference node when none
// is configured. A configured node must exist.
func resolveNode(ctx context.Context, g graph.Graph, id string) (graph.NodeID, error) {
	if id == "" {
		return g.ReferenceNode(ctx)
	}

	node := graph.NodeID(id)
	var exists bool
	err := g.View(ctx, func(tx graph.Tx) error {
		var err error
		exists, err = tx.NodeExists(ctx, node)
		return err
	})
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("node %s: %w", id, graph.ErrNodeNotFound)
	}
	return node, nil
}

// syncError wraps a failed resource operation.
func syncError(message string, err error) error {
	return WrapExitError(ExitCommandError, CodeSync, message, err)
}
