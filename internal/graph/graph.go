package graph

import (
	"context"
	"errors"
)

// Sentinel errors shared by all backends. Backends wrap them with context;
// callers match with errors.Is.
var (
	// ErrNodeNotFound is returned when a node id does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrPropertyNotFound is returned by Tx.Property for an unset property.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrUnsupportedValue is returned when a value has no codec kind.
	ErrUnsupportedValue = errors.New("unsupported property value")
)

// NodeID identifies a node. Backends mint UUIDv7 strings.
type NodeID string

// String implements fmt.Stringer.
func (id NodeID) String() string { return string(id) }

// Graph is a transactional node/property database.
type Graph interface {
	// ReferenceNode returns the node created when the database was first
	// opened. It always exists.
	ReferenceNode(ctx context.Context) (NodeID, error)

	// CreateNode adds an empty node and returns its id.
	CreateNode(ctx context.Context) (NodeID, error)

	// Update runs fn in a read-write transaction. The transaction commits
	// iff fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the database.
	Close() error
}

// Tx is property access scoped to a single transaction.
type Tx interface {
	// NodeExists reports whether the node exists.
	NodeExists(ctx context.Context, node NodeID) (bool, error)

	// Property returns the decoded value of key on node.
	// Returns ErrPropertyNotFound if the property is not set and
	// ErrNodeNotFound if the node does not exist.
	Property(ctx context.Context, node NodeID, key string) (any, error)

	// SetProperty stores value under key, replacing any previous value
	// regardless of its kind.
	SetProperty(ctx context.Context, node NodeID, key string, value any) error

	// RemoveProperty deletes key. Removing an unset property is not an error.
	RemoveProperty(ctx context.Context, node NodeID, key string) error

	// HasProperty reports whether key is set on node, whatever its kind.
	HasProperty(ctx context.Context, node NodeID, key string) (bool, error)
}
