// Package schema provides the descriptor model shared by the reconciler,
// the declared-schema compiler, and the schema stores.
//
// This package contains type definitions and pure helpers only. Every other
// internal package may import schema; schema imports nothing internal.
//
// Key design constraints:
//   - Field is a sealed variant: ScalarField, PointerField, RelationField.
//     Reference kinds carry a target class, the others cannot.
//   - Default values are sealed Values, never bare interface{} trees.
//   - A Payload is a delta (upserts and delete markers), never a full state.
//   - JSON keys use the backend's camelCase names (className, targetClass).
package schema
