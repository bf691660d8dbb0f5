package core

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ClassifyOptions tunes column classification.
//
// The zero value treats every non-numeric column as free text. Setting
// CategoricalMaxDistinct enables the categorical-text kind for short,
// low-cardinality text columns.
type ClassifyOptions struct {
	// CategoricalMaxDistinct is the largest distinct-value count a text
	// column may have to be classified categorical. 0 disables the kind.
	CategoricalMaxDistinct int

	// CategoricalMaxLen is the longest value, in characters, a categorical
	// column may hold. 0 means 32.
	CategoricalMaxLen int
}

const defaultCategoricalMaxLen = 32

// ClassifyColumns sets Kind and Unique on every column of t in place.
// Only call it on a table that has not been handed downstream yet.
func ClassifyColumns(t *Table, opts ClassifyOptions) {
	for i := range t.Columns {
		values := t.ColumnValues(i)
		t.Columns[i].Kind = classifyValues(values, opts)
		t.Columns[i].Unique = allDistinct(values)
	}
}

// classifyValues decides the kind of a single column.
//
// Behavior:
//   - numeric if every non-empty value parses as a number (all-empty counts as numeric)
//   - categorical-text if enabled and the distinct/length limits hold
//   - free-text otherwise
func classifyValues(values []string, opts ClassifyOptions) ColumnKind {
	if isNumericColumn(values) {
		return KindNumeric
	}

	if opts.CategoricalMaxDistinct > 0 {
		maxLen := opts.CategoricalMaxLen
		if maxLen <= 0 {
			maxLen = defaultCategoricalMaxLen
		}
		distinct := make(map[string]struct{})
		short := true
		for _, v := range values {
			if utf8.RuneCountInString(v) > maxLen {
				short = false
				break
			}
			distinct[v] = struct{}{}
		}
		if short && len(distinct) <= opts.CategoricalMaxDistinct {
			return KindCategoricalText
		}
	}

	return KindFreeText
}

func isNumericColumn(values []string) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// allDistinct reports whether values are pairwise distinct. An empty column
// has no uniqueness determination and reports false.
func allDistinct(values []string) bool {
	if len(values) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}
