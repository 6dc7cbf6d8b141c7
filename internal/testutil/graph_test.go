package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/graph"
)

func TestFaultyGraph_FailCommitsDiscardsWork(t *testing.T) {
	g, node := OpenGraph(t)
	fg := NewFaultyGraph(g)
	ctx := context.Background()

	fg.FailCommits(nil)
	err := fg.Update(ctx, func(tx graph.Tx) error {
		return tx.SetProperty(ctx, node, "k", "v")
	})
	require.ErrorIs(t, err, ErrInjected)

	err = g.View(ctx, func(tx graph.Tx) error {
		_, err := tx.Property(ctx, node, "k")
		return err
	})
	assert.ErrorIs(t, err, graph.ErrPropertyNotFound)
}

func TestFaultyGraph_FailViews(t *testing.T) {
	g, _ := OpenGraph(t)
	fg := NewFaultyGraph(g)
	custom := errors.New("disk on fire")

	fg.FailViews(custom)
	called := false
	err := fg.View(context.Background(), func(tx graph.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, custom)
	assert.False(t, called)
}

func TestFaultyGraph_Heal(t *testing.T) {
	g, node := OpenGraph(t)
	fg := NewFaultyGraph(g)
	ctx := context.Background()

	fg.FailCommits(nil)
	fg.FailViews(nil)
	fg.Heal()

	require.NoError(t, fg.Update(ctx, func(tx graph.Tx) error {
		return tx.SetProperty(ctx, node, "k", "v")
	}))
	require.NoError(t, fg.View(ctx, func(tx graph.Tx) error {
		v, err := tx.Property(ctx, node, "k")
		if err != nil {
			return err
		}
		assert.Equal(t, "v", v)
		return nil
	}))
}
