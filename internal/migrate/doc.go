// Package migrate reconciles declared class schemas against the live
// schemas of a backend.
//
// A pass enumerates the live schemas once, diffs every declared class
// against that snapshot, and submits the differences through staged
// create and update calls:
//
//	Run
//	 ├─ duplicate className check (before any backend call)
//	 ├─ beforeMigration hook
//	 ├─ retry loop
//	 │   ├─ bootstrap _Session record, enumerate live   (startup timeout)
//	 │   ├─ per declared class, concurrently: create or staged update
//	 │   ├─ strict-mode report of undeclared classes
//	 │   └─ permission floor for undeclared classes
//	 └─ afterMigration hook
//
// Within one class, deletions are always flushed in their own call before
// the additions that reuse the same names. Default columns and
// backend-owned indexes are never touched, and every submitted permission
// document locks addField.
package migrate
