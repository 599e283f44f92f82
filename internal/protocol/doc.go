// Package protocol owns the AUDAC wire contract and parsing primitives.
//
// Ownership boundary:
// - frame field order and delimiters
// - source-id sanitizing rules
// - malformed-frame classification
package protocol
