// Package compiler turns declared schema files into schema.Schema values.
//
// Two source formats are accepted:
//
//   - CUE: every .cue file in a directory is loaded as one instance and each
//     member of the top-level "schema" struct becomes a declaration, e.g.
//     schema: Game: {fields: score: type: "Number"}. The struct label is the
//     className unless the body sets one. Labels of system classes must
//     be quoted ("_User"), since CUE treats _name as a hidden field.
//   - YAML or JSON: a document with a top-level "schemas" sequence, one
//     element per declaration.
//
// Loading (Load) only reads and decodes. Compile types each document and
// Validate checks the rules that span declarations. Both collect every
// problem instead of stopping at the first.
package compiler
