// Package store provides SQLite-backed storage for built modules and the
// runs made against them.
//
// The store holds two tables:
//   - modules: encoded .bir images keyed by program hash (build cache)
//   - runs: one record per top-level call, with its arguments and outcome
//
// Modules are content addressed: the key is ir.ProgramHash of the program
// the image was built from, so writing the same program twice is a no-op.
//
// Runs are ordered by seq, a logical clock assigned by the caller, never by
// wall time. All listing queries use ORDER BY seq ASC, id ASC COLLATE BINARY
// so results are identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Runs must reference a cached module
package store
