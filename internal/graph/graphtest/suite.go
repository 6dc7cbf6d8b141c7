// Package graphtest holds the conformance suite every graph.Graph backend
// must pass.
package graphtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/graph"
)

// Factory creates a fresh, empty graph for each test. It should register
// cleanup with t.Cleanup.
type Factory func(t *testing.T) graph.Graph

// RunConformanceSuite runs the full suite against factory.
func RunConformanceSuite(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("Nodes", func(t *testing.T) { runNodeTests(t, factory) })
	t.Run("Properties", func(t *testing.T) { runPropertyTests(t, factory) })
	t.Run("Transactions", func(t *testing.T) { runTransactionTests(t, factory) })
}

func setString(t *testing.T, g graph.Graph, node graph.NodeID, key, value string) {
	t.Helper()
	err := g.Update(context.Background(), func(tx graph.Tx) error {
		return tx.SetProperty(context.Background(), node, key, value)
	})
	require.NoError(t, err)
}

func getProperty(t *testing.T, g graph.Graph, node graph.NodeID, key string) (any, error) {
	t.Helper()
	var v any
	err := g.View(context.Background(), func(tx graph.Tx) error {
		var err error
		v, err = tx.Property(context.Background(), node, key)
		return err
	})
	return v, err
}

func reference(t *testing.T, g graph.Graph) graph.NodeID {
	t.Helper()
	node, err := g.ReferenceNode(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, node)
	return node
}

func runNodeTests(t *testing.T, factory Factory) {
	t.Run("ReferenceNodeIsStable", func(t *testing.T) {
		g := factory(t)
		first := reference(t, g)
		second := reference(t, g)
		assert.Equal(t, first, second)

		var exists bool
		err := g.View(context.Background(), func(tx graph.Tx) error {
			var err error
			exists, err = tx.NodeExists(context.Background(), first)
			return err
		})
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("CreateNodeIsDistinct", func(t *testing.T) {
		g := factory(t)
		ref := reference(t, g)

		a, err := g.CreateNode(context.Background())
		require.NoError(t, err)
		b, err := g.CreateNode(context.Background())
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.NotEqual(t, ref, a)

		setString(t, g, a, "Gemfile", "a")
		_, err = getProperty(t, g, b, "Gemfile")
		assert.ErrorIs(t, err, graph.ErrPropertyNotFound)
	})

	t.Run("UnknownNode", func(t *testing.T) {
		g := factory(t)
		missing := graph.NodeID("00000000-0000-7000-8000-000000000000")

		_, err := getProperty(t, g, missing, "k")
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)

		err = g.Update(context.Background(), func(tx graph.Tx) error {
			return tx.SetProperty(context.Background(), missing, "k", "v")
		})
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)
	})
}

func runPropertyTests(t *testing.T, factory Factory) {
	t.Run("NotFound", func(t *testing.T) {
		g := factory(t)
		_, err := getProperty(t, g, reference(t, g), "absent")
		assert.ErrorIs(t, err, graph.ErrPropertyNotFound)
	})

	t.Run("RoundTripKinds", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)

		values := map[string]any{
			"s": "gem 'sinatra'\n",
			"i": int64(12),
			"f": 0.25,
			"b": false,
			"y": []byte{1, 2, 3},
		}
		err := g.Update(context.Background(), func(tx graph.Tx) error {
			for k, v := range values {
				if err := tx.SetProperty(context.Background(), node, k, v); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		for k, want := range values {
			got, err := getProperty(t, g, node, k)
			require.NoError(t, err, "key %s", k)
			assert.Equal(t, want, got, "key %s", k)
		}
	})

	t.Run("OverwriteChangesKind", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)

		setString(t, g, node, "k", "text")
		err := g.Update(context.Background(), func(tx graph.Tx) error {
			return tx.SetProperty(context.Background(), node, "k", int64(5))
		})
		require.NoError(t, err)

		got, err := getProperty(t, g, node, "k")
		require.NoError(t, err)
		assert.Equal(t, int64(5), got)
	})

	t.Run("UnsupportedValue", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)
		err := g.Update(context.Background(), func(tx graph.Tx) error {
			return tx.SetProperty(context.Background(), node, "k", map[string]string{})
		})
		assert.ErrorIs(t, err, graph.ErrUnsupportedValue)
	})

	t.Run("RemoveAndHas", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)
		ctx := context.Background()

		has := func() bool {
			var ok bool
			require.NoError(t, g.View(ctx, func(tx graph.Tx) error {
				var err error
				ok, err = tx.HasProperty(ctx, node, "k")
				return err
			}))
			return ok
		}

		assert.False(t, has())
		setString(t, g, node, "k", "v")
		assert.True(t, has())

		remove := func() error {
			return g.Update(ctx, func(tx graph.Tx) error {
				return tx.RemoveProperty(ctx, node, "k")
			})
		}
		require.NoError(t, remove())
		assert.False(t, has())

		// Removing again is not an error
		require.NoError(t, remove())
	})
}

func runTransactionTests(t *testing.T, factory Factory) {
	t.Run("ErrorDiscards", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)
		boom := errors.New("boom")

		err := g.Update(context.Background(), func(tx graph.Tx) error {
			if err := tx.SetProperty(context.Background(), node, "k", "v"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = getProperty(t, g, node, "k")
		assert.ErrorIs(t, err, graph.ErrPropertyNotFound)
	})

	t.Run("PanicDiscards", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)

		func() {
			defer func() { _ = recover() }()
			_ = g.Update(context.Background(), func(tx graph.Tx) error {
				if err := tx.SetProperty(context.Background(), node, "k", "v"); err != nil {
					return err
				}
				panic("mid-transaction")
			})
		}()

		_, err := getProperty(t, g, node, "k")
		assert.ErrorIs(t, err, graph.ErrPropertyNotFound)
	})

	t.Run("ViewDoesNotPersist", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)

		_ = g.View(context.Background(), func(tx graph.Tx) error {
			_ = tx.SetProperty(context.Background(), node, "k", "v")
			return nil
		})

		_, err := getProperty(t, g, node, "k")
		assert.ErrorIs(t, err, graph.ErrPropertyNotFound)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		g := factory(t)
		node := reference(t, g)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := g.Update(ctx, func(tx graph.Tx) error {
			called = true
			return tx.SetProperty(ctx, node, "k", "v")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}
