// Package graph defines the graph database collaborator used by propsync.
//
// A graph is a set of nodes, each carrying named, typed properties. propsync
// only ever touches one property on one node at a time, so the surface is
// deliberately narrow:
//
//   - Graph: node identity and scoped transactions (Update, View)
//   - Tx: property access inside a transaction
//   - Value codec: a (kind, bytes) encoding shared by every backend
//
// # Transactions
//
// Update runs a function inside a read-write transaction. The transaction is
// committed when the function returns nil and discarded on every other exit
// path, including panics. View runs a function in a transaction that is
// always discarded.
//
// Two backends implement Graph: internal/store (SQLite) and internal/kvstore
// (Badger).
package graph
