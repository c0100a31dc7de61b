// Package harness runs reconciliation scenarios described in YAML.
//
// A scenario seeds a fresh in-memory SQLite store with live schemas, runs
// one Reconciler over it with the declared schemas and options, and
// checks the recorded backend calls and final state against assertions.
// Failures can be injected per operation and class to exercise the retry
// envelope.
//
// Golden traces group calls by class: classes are migrated concurrently,
// so only the order within a class is deterministic. Regenerate them with
//
//	go test ./internal/harness -update
package harness
