// Package catalog applies create and update payloads to stored schema
// documents, enforcing the backend's mutation rules.
//
// Both concrete stores (SQLite and Postgres) keep one JSON document per
// class and route every write through Create or Update, so the rules the
// reconciler relies on hold regardless of where documents live:
//
//   - create fails when the class exists; update fails when it does not
//   - re-adding a field with another type or targetClass fails, the same
//     type replaces the descriptor's options
//   - deleting a missing field or index fails, adding an existing index fails
//   - a payload naming a default column or backend-owned index fails
//   - index keys must name fields of the class, unless they start with "_"
package catalog
