// Package property reads and writes string properties on one designated
// graph node. Every mutation is its own transaction.
package property

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/propsync/internal/graph"
)

// ErrTypeMismatch is returned by Lookup when the property holds a
// non-string value.
var ErrTypeMismatch = errors.New("property is not a string")

// Store is the property accessor for a single node.
type Store struct {
	graph     graph.Graph
	node      graph.NodeID
	normalize *norm.Form
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNormalization applies a Unicode normalization form to every value
// passed to Set. Reads return whatever was persisted.
func WithNormalization(form norm.Form) Option {
	return func(s *Store) {
		s.normalize = &form
	}
}

// NormalizationByName maps "nfc" and "nfd" to WithNormalization. An empty
// name yields an option that leaves values untouched.
func NormalizationByName(name string) (Option, error) {
	switch name {
	case "":
		return func(*Store) {}, nil
	case "nfc":
		return WithNormalization(norm.NFC), nil
	case "nfd":
		return WithNormalization(norm.NFD), nil
	default:
		return nil, fmt.Errorf("unknown normalization form %q", name)
	}
}

// WithLogger sets the logger used for collapsed read failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store for node.
func New(g graph.Graph, node graph.NodeID, opts ...Option) *Store {
	s := &Store{
		graph:  g,
		node:   node,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Node returns the designated node.
func (s *Store) Node() graph.NodeID {
	return s.node
}

// Get returns the string value of key.
//
// Get never fails: an unset property, a non-string value and a read error
// all report ok=false. The failure reason is only logged; use Lookup to
// tell them apart.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.Lookup(ctx, key)
	if err != nil {
		s.logger.Debug("property read collapsed to absent",
			"node", s.node, "key", key, "error", err)
		return "", false
	}
	return value, ok
}

// Lookup returns the string value of key.
// An unset property is ok=false with a nil error. A non-string value
// returns ErrTypeMismatch; storage failures are returned as-is.
func (s *Store) Lookup(ctx context.Context, key string) (string, bool, error) {
	var raw any
	err := s.graph.View(ctx, func(tx graph.Tx) error {
		var err error
		raw, err = tx.Property(ctx, s.node, key)
		return err
	})
	if errors.Is(err, graph.ErrPropertyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %q: %w", key, err)
	}

	str, isString := raw.(string)
	if !isString {
		return "", false, fmt.Errorf("lookup %q: %w (%T)", key, ErrTypeMismatch, raw)
	}
	return str, true, nil
}

// Set writes value under key in one transaction.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.normalize != nil {
		value = s.normalize.String(value)
	}

	err := s.graph.Update(ctx, func(tx graph.Tx) error {
		return tx.SetProperty(ctx, s.node, key, value)
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key in one transaction. An unset key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	err := s.graph.Update(ctx, func(tx graph.Tx) error {
		return tx.RemoveProperty(ctx, s.node, key)
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Exists reports whether key is set, whatever the value's type.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.graph.View(ctx, func(tx graph.Tx) error {
		var err error
		ok, err = tx.HasProperty(ctx, s.node, key)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, err)
	}
	return ok, nil
}
