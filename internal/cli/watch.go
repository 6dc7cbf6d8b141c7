package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Restore the mirror file whenever it is changed on disk",
		Long: `Refresh the mirror once, then watch its directory and refresh again
whenever the file is created, written, removed or renamed.

Runs until interrupted (SIGINT/SIGTERM).

Examples:
  propsync watch --config ./propsync.yaml
  propsync watch --debounce 1s -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	changed, err := s.res.Refresh(ctx)
	if err != nil {
		return syncError("initial refresh failed", err)
	}
	s.logger.Info("initial refresh", "path", s.res.Path(), "changed", changed)

	w, err := watch.New(s.res, s.cfg.Watch.Debounce, watch.WithLogger(s.logger))
	if err != nil {
		return WrapExitError(ExitCommandError, CodeWatch, "failed to create watcher", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, CodeWatch, "failed to start watcher", err)
	}

	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", w.Path())
	}

	<-w.Done()

	stats := w.Stats()
	s.logger.Info("watch stopped", "events", stats.Events, "refreshes", stats.Refreshes, "rewrites", stats.Rewrites)
	if opts.Format == "json" {
		return s.out.Success(stats, "")
	}
	return nil
}
