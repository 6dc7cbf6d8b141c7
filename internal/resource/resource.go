package resource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// PropertyStore is the graph side of a resource.
type PropertyStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Mirror is the file side of a resource.
type Mirror interface {
	Path() string
	ReadAll() (string, error)
	WriteAll(content string) error
	Exists() bool
	Delete() error
}

// Op names the mutation a hook is reacting to.
type Op string

const (
	OpStore   Op = "store"
	OpRefresh Op = "refresh"
	OpDelete  Op = "delete"
)

// Mutation describes a completed mutation.
type Mutation struct {
	Op       Op
	Property string
	Path     string
	Changed  bool // whether the mirror was rewritten or removed
}

// Hook runs after a successful mutation. Errors are logged, never returned.
type Hook func(ctx context.Context, m Mutation) error

// Resource synchronizes one property with one file.
type Resource struct {
	props  PropertyStore
	key    string
	mirror Mirror
	hooks  []Hook
	logger *slog.Logger
}

// Option configures a Resource.
type Option func(*Resource)

// WithHooks appends post-mutation hooks. Hooks run in order.
func WithHooks(hooks ...Hook) Option {
	return func(r *Resource) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// WithLogger sets the resource logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resource) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns a resource for property key mirrored to m.
func New(props PropertyStore, key string, m Mirror, opts ...Option) *Resource {
	r := &Resource{
		props:  props,
		key:    key,
		mirror: m,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewLockAware returns a resource that also clears "<path>.lock" after
// every mutation.
func NewLockAware(props PropertyStore, key string, m Mirror, opts ...Option) *Resource {
	opts = append(opts, WithHooks(LockCleanup()))
	return New(props, key, m, opts...)
}

// Property returns the property key.
func (r *Resource) Property() string {
	return r.key
}

// Path returns the mirror path.
func (r *Resource) Path() string {
	return r.mirror.Path()
}

// Store writes data to the graph and brings the mirror up to date with the
// persisted value. It reports whether the mirror was rewritten.
func (r *Resource) Store(ctx context.Context, data string) (bool, error) {
	if err := r.props.Set(ctx, r.key, data); err != nil {
		return false, fmt.Errorf("store %s: %w", r.key, err)
	}

	changed, err := r.reconcile(ctx, true)
	if err != nil {
		return false, fmt.Errorf("store %s: %w", r.key, err)
	}

	r.logger.Debug("resource stored", "property", r.key, "path", r.Path(), "changed", changed)
	r.runHooks(ctx, Mutation{Op: OpStore, Property: r.key, Path: r.Path(), Changed: changed})
	return changed, nil
}

// Retrieve returns the property value. Any read failure reports ok=false.
func (r *Resource) Retrieve(ctx context.Context) (string, bool) {
	return r.props.Get(ctx, r.key)
}

// ExistsInStore reports whether the property is set.
func (r *Resource) ExistsInStore(ctx context.Context) (bool, error) {
	return r.props.Exists(ctx, r.key)
}

// Refresh reconciles the mirror with the current property value without
// writing the graph. An absent property removes the mirror.
func (r *Resource) Refresh(ctx context.Context) (bool, error) {
	changed, err := r.reconcile(ctx, false)
	if err != nil {
		return false, fmt.Errorf("refresh %s: %w", r.key, err)
	}

	r.runHooks(ctx, Mutation{Op: OpRefresh, Property: r.key, Path: r.Path(), Changed: changed})
	return changed, nil
}

// Delete removes the property, then the mirror. The graph is authoritative:
// a mirror that cannot be removed is logged and left behind.
func (r *Resource) Delete(ctx context.Context) error {
	if err := r.props.Remove(ctx, r.key); err != nil {
		return fmt.Errorf("delete %s: %w", r.key, err)
	}

	existed := r.mirror.Exists()
	if err := r.mirror.Delete(); err != nil {
		r.logger.Warn("mirror cleanup failed", "property", r.key, "path", r.Path(), "error", err)
		existed = false
	}

	r.logger.Debug("resource deleted", "property", r.key, "path", r.Path())
	r.runHooks(ctx, Mutation{Op: OpDelete, Property: r.key, Path: r.Path(), Changed: existed})
	return nil
}

// reconcile makes the mirror match the persisted value. afterWrite is set
// when the property was committed just before.
func (r *Resource) reconcile(ctx context.Context, afterWrite bool) (bool, error) {
	value, ok := r.Retrieve(ctx)
	if !ok {
		// Property vanished after the write, or Refresh of an unset resource.
		if !r.mirror.Exists() {
			return false, nil
		}
		if afterWrite {
			r.logger.Warn("property unreadable after store, removing mirror",
				"property", r.key, "path", r.Path())
		}
		if err := r.mirror.Delete(); err != nil {
			return false, err
		}
		return true, nil
	}

	if r.mirror.Exists() {
		current, err := r.mirror.ReadAll()
		if err == nil && current == value {
			return false, nil
		}
		if err != nil {
			r.logger.Debug("staleness check failed, rewriting mirror",
				"path", r.Path(), "error", err)
		}
	}

	if err := r.mirror.WriteAll(value); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Resource) runHooks(ctx context.Context, m Mutation) {
	for _, hook := range r.hooks {
		if err := hook(ctx, m); err != nil {
			r.logger.Debug("post-mutation hook failed",
				"op", m.Op, "path", m.Path, "error", err)
		}
	}
}
