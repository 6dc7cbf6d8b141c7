package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/propsync/internal/graph"
)

// Update runs fn inside a read-write transaction.
// The transaction commits only if fn returns nil; any other exit path,
// including a panic in fn, rolls it back.
func (s *Store) Update(ctx context.Context, fn func(tx graph.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update: commit: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(tx graph.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("view: begin tx: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTx{tx: tx})
}

// sqlTx implements graph.Tx over a database transaction.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) NodeExists(ctx context.Context, node graph.NodeID) (bool, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE id = ?`, string(node),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("node exists: %w", err)
	}
	return count > 0, nil
}

// requireNode returns graph.ErrNodeNotFound (wrapped with op) for a missing node.
func (t *sqlTx) requireNode(ctx context.Context, op string, node graph.NodeID) error {
	ok, err := t.NodeExists(ctx, node)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %s: %w", op, node, graph.ErrNodeNotFound)
	}
	return nil
}

func (t *sqlTx) Property(ctx context.Context, node graph.NodeID, key string) (any, error) {
	var (
		kind string
		raw  []byte
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT kind, value FROM node_properties
		WHERE node_id = ? AND key = ?
	`, string(node), key).Scan(&kind, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		if err := t.requireNode(ctx, "get property", node); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("get property %q: %w", key, graph.ErrPropertyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property %q: %w", key, err)
	}

	v, err := graph.DecodeValue(graph.Kind(kind), raw)
	if err != nil {
		return nil, fmt.Errorf("get property %q: %w", key, err)
	}
	return v, nil
}

func (t *sqlTx) SetProperty(ctx context.Context, node graph.NodeID, key string, value any) error {
	kind, raw, err := graph.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("set property %q: %w", key, err)
	}
	if err := t.requireNode(ctx, "set property", node); err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO node_properties (node_id, key, kind, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(node_id, key) DO UPDATE SET kind = excluded.kind, value = excluded.value
	`, string(node), key, string(kind), raw)
	if err != nil {
		return fmt.Errorf("set property %q: %w", key, err)
	}
	return nil
}

func (t *sqlTx) RemoveProperty(ctx context.Context, node graph.NodeID, key string) error {
	if err := t.requireNode(ctx, "remove property", node); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM node_properties WHERE node_id = ? AND key = ?
	`, string(node), key)
	if err != nil {
		return fmt.Errorf("remove property %q: %w", key, err)
	}
	return nil
}

func (t *sqlTx) HasProperty(ctx context.Context, node graph.NodeID, key string) (bool, error) {
	if err := t.requireNode(ctx, "has property", node); err != nil {
		return false, err
	}

	var count int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM node_properties WHERE node_id = ? AND key = ?
	`, string(node), key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has property %q: %w", key, err)
	}
	return count > 0, nil
}
