// Package testutil provides graph fixtures and fault injection for tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roach88/propsync/internal/graph"
	"github.com/roach88/propsync/internal/store"
)

// ErrInjected is the default error returned by FaultyGraph.
var ErrInjected = errors.New("injected fault")

// OpenGraph opens a SQLite graph in a temp dir and returns it with its
// reference node. The graph is closed on test cleanup.
func OpenGraph(t *testing.T) (*store.Store, graph.NodeID) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	node, err := s.ReferenceNode(context.Background())
	if err != nil {
		t.Fatalf("ReferenceNode() failed: %v", err)
	}
	return s, node
}

// FaultyGraph wraps a graph and fails selected operations.
//
// FailCommit runs the caller's function inside the real transaction and then
// returns the fault, so the backend discards the work just as it would for
// a failed commit.
//
// Thread-safety: fault fields are guarded by an internal mutex.
type FaultyGraph struct {
	graph.Graph

	mu         sync.Mutex
	failCommit error
	failView   error
}

// NewFaultyGraph wraps g with no faults armed.
func NewFaultyGraph(g graph.Graph) *FaultyGraph {
	return &FaultyGraph{Graph: g}
}

// FailCommits makes every subsequent Update fail with err (ErrInjected if nil).
func (f *FaultyGraph) FailCommits(err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCommit = err
}

// FailViews makes every subsequent View fail with err (ErrInjected if nil).
func (f *FaultyGraph) FailViews(err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failView = err
}

// Heal disarms all faults.
func (f *FaultyGraph) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCommit = nil
	f.failView = nil
}

func (f *FaultyGraph) faults() (commit, view error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failCommit, f.failView
}

// Update delegates to the wrapped graph, discarding the work when a commit
// fault is armed.
func (f *FaultyGraph) Update(ctx context.Context, fn func(tx graph.Tx) error) error {
	commitErr, _ := f.faults()
	if commitErr == nil {
		return f.Graph.Update(ctx, fn)
	}

	return f.Graph.Update(ctx, func(tx graph.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return commitErr
	})
}

// View delegates to the wrapped graph unless a view fault is armed.
func (f *FaultyGraph) View(ctx context.Context, fn func(tx graph.Tx) error) error {
	if _, viewErr := f.faults(); viewErr != nil {
		return viewErr
	}
	return f.Graph.View(ctx, fn)
}
