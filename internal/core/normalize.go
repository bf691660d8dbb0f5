package core

// normalize.go bounds free-text columns before tables reach a synthesizer.
//
// Two modes exist:
//
//   - Single-table: each free-text value is replaced by a stable integer
//     fingerprint so a numeric-input synthesizer can accept the column.
//     Equal strings always map to equal fingerprints. Collisions are an
//     accepted loss, not an error.
//   - Multi-table: each free-text value is cut to its first N characters so
//     related tables stay readable.
//
// Both functions are pure: the input table is never modified.

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
)

// DefaultMaxTextLen is the multi-table truncation length when none is given.
const DefaultMaxTextLen = 200

// NormalizeOptions selects the normalization applied by Normalize.
type NormalizeOptions struct {
	Mode       Mode
	MaxTextLen int // multi-table only; 0 means DefaultMaxTextLen
}

// Normalize applies the normalization selected by opts.
func Normalize(t *Table, opts NormalizeOptions) (*Table, error) {
	switch opts.Mode {
	case ModeSingle, "":
		return HashFreeText(t), nil
	case ModeMulti:
		n := opts.MaxTextLen
		if n == 0 {
			n = DefaultMaxTextLen
		}
		return TruncateFreeText(t, n)
	default:
		return nil, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", opts.Mode)}
	}
}

// HashFreeText returns a copy of t with every free-text value replaced by
// its Fingerprint. Hashed columns become numeric, so hashing an already
// hashed table is a no-op.
func HashFreeText(t *Table) *Table {
	out := t.Clone()
	for i, col := range out.Columns {
		if col.Kind != KindFreeText {
			continue
		}
		for _, row := range out.Rows {
			row[i] = strconv.FormatInt(Fingerprint(row[i]), 10)
		}
		out.Columns[i].Kind = KindNumeric
	}
	return out
}

// Fingerprint returns a stable, non-negative 63-bit digest of s: the first
// eight bytes of its SHA-256 with the sign bit cleared.
func Fingerprint(s string) int64 {
	sum := sha256.Sum256([]byte(s))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

// TruncateFreeText returns a copy of t with every free-text value cut to
// its first n characters. Values already within n are unchanged, which
// makes the operation idempotent. n must be at least 1.
func TruncateFreeText(t *Table, n int) (*Table, error) {
	if n < 1 {
		return nil, &ConfigurationError{Field: "max_text_len", Reason: fmt.Sprintf("must be at least 1, got %d", n)}
	}

	out := t.Clone()
	for i, col := range out.Columns {
		if col.Kind != KindFreeText {
			continue
		}
		for _, row := range out.Rows {
			row[i] = truncateRunes(row[i], n)
		}
	}
	return out, nil
}

// truncateRunes cuts s to at most n characters without splitting a
// multi-byte sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
