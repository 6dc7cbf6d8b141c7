// Package kvstore implements graph.Graph on BadgerDB.
//
// Key layout:
//
//	m/reference          -> reference node id
//	n/<node>             -> empty marker, node exists
//	p/<node>/<key>       -> kind byte length, kind, encoded value
package kvstore

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/roach88/propsync/internal/graph"
)

var keyReference = []byte("m/reference")

func keyNode(node graph.NodeID) []byte {
	return []byte("n/" + string(node))
}

func keyProperty(node graph.NodeID, key string) []byte {
	return []byte("p/" + string(node) + "/" + key)
}

// Store is a graph.Graph on BadgerDB.
type Store struct {
	db *badgerdb.DB
}

var _ graph.Graph = (*Store)(nil)

// Open opens or creates a Badger database in dir and ensures the reference
// node exists. An empty dir opens an in-memory database.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureReferenceNode(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureReferenceNode() error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(keyReference)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("reference node: %w", err)
		}

		id, err := graph.NewNodeID()
		if err != nil {
			return err
		}
		if err := txn.Set(keyNode(id), []byte{}); err != nil {
			return fmt.Errorf("reference node: %w", err)
		}
		return txn.Set(keyReference, []byte(id))
	})
}

// ReferenceNode returns the node created on first open.
func (s *Store) ReferenceNode(ctx context.Context) (graph.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var id graph.NodeID
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyReference)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return graph.ErrNodeNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id = graph.NodeID(raw)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reference node: %w", err)
	}
	return id, nil
}

// CreateNode adds an empty node.
func (s *Store) CreateNode(ctx context.Context) (graph.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id, err := graph.NewNodeID()
	if err != nil {
		return "", err
	}
	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyNode(id), []byte{})
	}); err != nil {
		return "", fmt.Errorf("create node: %w", err)
	}
	return id, nil
}

// Update executes fn within a read-write Badger transaction.
//
// If fn returns an error, the transaction is discarded.
// If fn returns nil, the transaction is committed.
func (s *Store) Update(ctx context.Context, fn func(tx graph.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// View executes fn within a read-only Badger transaction.
func (s *Store) View(ctx context.Context, fn func(tx graph.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badgerdb.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}
