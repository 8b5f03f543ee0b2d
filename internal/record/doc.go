// Package record parses one input line into an ordered JSON object.
//
// # Overview
//
// Parse never fails. A line that holds exactly one JSON object becomes a
// Record whose fields keep their input order; anything else (scalars,
// arrays, broken JSON, trailing text) becomes a fallback Line that the
// pipeline prints unchanged.
//
// # Values
//
// Value is a tagged variant over the six JSON kinds. Accessors return
// (value, ok) instead of panicking on the wrong kind. Numbers keep their
// literal text, so 1.50 prints as 1.50 and large integers are not rounded.
//
// # Lookup
//
// Record.Lookup tries the key literally first and then as a dotted path
// through nested objects:
//
//	{"log.level":"warn"}          Lookup("log.level") -> "warn"
//	{"log":{"level":"warn"}}      Lookup("log.level") -> "warn"
//
// # Flattening
//
// Flatten walks a record depth first for display. Nested keys are joined
// with " > " and array elements get a 1-based "[n]" suffix:
//
//	{"req":{"id":7,"tags":["a"]}}  ->  req > id = 7
//	                                   req > tags[1] = a
package record
