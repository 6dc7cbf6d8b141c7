// Package store provides the SQLite-backed graph database for propsync.
//
// The graph is two tables:
//   - nodes: one row per node, keyed by UUIDv7 id
//   - node_properties: (node_id, key) -> (kind, value), one row per property
//
// A third table, graph_meta, records the reference node created on first open.
//
// # Transactions
//
// Update and View open a database transaction, run the caller's function and
// always finalize it: Update commits only when the function returns nil,
// View always rolls back. A deferred Rollback covers panics and early returns.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Properties cascade with their node
//   - one open connection: SQLite has a single writer
package store
