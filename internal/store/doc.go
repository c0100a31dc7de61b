// Package store provides a SQLite-backed schema store.
//
// Each class is one row holding the canonical JSON of its schema document.
// Creates and updates run inside a transaction that reads the current
// document, applies the payload through package catalog, and writes the
// result back, so the backend mutation rules hold for concurrent callers.
//
// # Tables
//
//   - classes: class_name → canonical schema document, with a revision
//     counter bumped on every write
//   - records: throwaway records used to materialize classes lazily
//   - schema_changes: append-only log of every applied payload
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Records cascade with their class
package store
