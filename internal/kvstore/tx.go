package kvstore

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/roach88/propsync/internal/graph"
)

// badgerTx wraps a Badger transaction for the graph.Tx interface.
type badgerTx struct {
	txn *badgerdb.Txn
}

func (tx *badgerTx) NodeExists(ctx context.Context, node graph.NodeID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := tx.txn.Get(keyNode(node))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("node exists: %w", err)
	}
	return true, nil
}

func (tx *badgerTx) requireNode(ctx context.Context, op string, node graph.NodeID) error {
	ok, err := tx.NodeExists(ctx, node)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %s: %w", op, node, graph.ErrNodeNotFound)
	}
	return nil
}

func (tx *badgerTx) Property(ctx context.Context, node graph.NodeID, key string) (any, error) {
	if err := tx.requireNode(ctx, "get property", node); err != nil {
		return nil, err
	}

	item, err := tx.txn.Get(keyProperty(node, key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("get property %q: %w", key, graph.ErrPropertyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property %q: %w", key, err)
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("get property %q: %w", key, err)
	}
	kind, payload, err := decodeEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("get property %q: %w", key, err)
	}
	v, err := graph.DecodeValue(kind, payload)
	if err != nil {
		return nil, fmt.Errorf("get property %q: %w", key, err)
	}
	return v, nil
}

func (tx *badgerTx) SetProperty(ctx context.Context, node graph.NodeID, key string, value any) error {
	kind, payload, err := graph.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("set property %q: %w", key, err)
	}
	if err := tx.requireNode(ctx, "set property", node); err != nil {
		return err
	}

	if err := tx.txn.Set(keyProperty(node, key), encodeEntry(kind, payload)); err != nil {
		return fmt.Errorf("set property %q: %w", key, err)
	}
	return nil
}

func (tx *badgerTx) RemoveProperty(ctx context.Context, node graph.NodeID, key string) error {
	if err := tx.requireNode(ctx, "remove property", node); err != nil {
		return err
	}

	// Badger deletes are blind writes; a missing key is fine.
	if err := tx.txn.Delete(keyProperty(node, key)); err != nil {
		return fmt.Errorf("remove property %q: %w", key, err)
	}
	return nil
}

func (tx *badgerTx) HasProperty(ctx context.Context, node graph.NodeID, key string) (bool, error) {
	if err := tx.requireNode(ctx, "has property", node); err != nil {
		return false, err
	}

	_, err := tx.txn.Get(keyProperty(node, key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has property %q: %w", key, err)
	}
	return true, nil
}

// encodeEntry prefixes payload with its kind: [len(kind)] kind payload.
func encodeEntry(kind graph.Kind, payload []byte) []byte {
	out := make([]byte, 0, 1+len(kind)+len(payload))
	out = append(out, byte(len(kind)))
	out = append(out, kind...)
	return append(out, payload...)
}

func decodeEntry(raw []byte) (graph.Kind, []byte, error) {
	if len(raw) == 0 {
		return "", nil, errors.New("empty property entry")
	}
	n := int(raw[0])
	if len(raw) < 1+n {
		return "", nil, errors.New("truncated property entry")
	}
	return graph.Kind(raw[1 : 1+n]), raw[1+n:], nil
}
