// Package harness runs YAML scenarios against a synchronized resource.
//
// Each scenario gets a fresh graph and a fresh working directory. Flow steps
// are traced as invocation/completion pairs with deterministic sequence
// numbers, and the final property, mirror and lock state is captured for
// assertions and golden comparison.
//
// # Scenario Format
//
//	name: gemfile_lifecycle
//	description: "Store, re-store, change, delete"
//	backend: sqlite            # or badger (in memory)
//	resource:
//	  property: Gemfile
//	  file: Gemfile            # relative to the working directory
//	  lock_aware: true
//	setup:
//	  - op: write_lock
//	flow:
//	  - op: store
//	    data: "v1"
//	    expect:
//	      outcome: ok
//	      result: { changed: true }
//	assertions:
//	  - type: trace_count
//	    op: store
//	    count: 1
//	  - type: final_state
//	    expect: { property: "v1", file: "v1", lock: false }
//
// # Operations
//
//   - store, retrieve, exists, delete, refresh: resource operations
//   - write_file, remove_file: tamper with the mirror directly
//   - write_lock: create the lock file next to the mirror
//   - fail_commits, heal: arm and disarm injected commit failures
//
// # Assertion Types
//
//   - trace_contains: an op was invoked with matching args
//   - trace_order: ops were invoked in the given order
//   - trace_count: an op was invoked exactly N times
//   - final_state: property, file and lock match (null means absent)
package harness
