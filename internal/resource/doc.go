// Package resource keeps a graph property and its file mirror coherent.
//
// A Resource is a stateless accessor over a (node, property, path) triple.
// The graph property is the system of record; the file is a disposable
// cache that is rewritten from whatever the graph actually persisted.
//
// # Store
//
//  1. Write the value to the property in one transaction. A failure is
//     returned and the file is not touched.
//  2. Read the value back from the graph.
//  3. Reconcile: leave an identical file alone (changed=false), otherwise
//     replace it (changed=true). An unreadable file counts as different.
//
// # Hooks
//
// Post-mutation hooks run after every successful Store, Refresh and Delete.
// Their errors are logged and dropped. LockCleanup is the hook used for
// mirrors consumed by a tool that leaves a "<path>.lock" artifact behind;
// NewLockAware installs it.
//
// # Concurrency
//
// There is no internal locking. Concurrent Store calls on one resource are
// last-writer-wins on the property, and the file follows whatever is read
// back at reconciliation time. Callers that need strict consistency must
// serialize access themselves.
package resource
