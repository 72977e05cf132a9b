// Package graph provides the object-graph value model that scrubbing
// operates on.
//
// This package contains type definitions and (de)serialization only. All
// other internal packages import graph; graph imports nothing internal.
// This keeps the value model the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Value is sealed: only Null, String, Int, Float, Bool, Array, Object
//   - Integers decode as Int (int64), never Float - the distinction matters
//     because category output kinds are checked against the value kind
//   - Encoding is deterministic: object keys are emitted in sorted order
//   - Canonical encoding (cache keys) NFC-normalizes strings and orders
//     keys by UTF-16 code units
package graph
