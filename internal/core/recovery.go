package core

// recovery.go turns untrusted generated text into a table.
//
// Each call is a single independent pass:
//
//  1. Fence stripping: ``` regions (with or without a language tag) are
//     located; the first region containing a comma becomes the search
//     domain. Without one, the whole text minus fence marker lines is used.
//  2. Line filtering: blank lines are dropped and everything before the
//     first comma-bearing line is treated as prose.
//  3. Delimited parse: the first surviving line is the header. Any record
//     with a different field count fails the whole document.
//  4. Values are kept as text. Column kinds are classified as metadata only.
//
// Failures are returned as *RecoveryError and never retried here.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RecoveredTableName is the name given to every recovered table.
const RecoveredTableName = "generated_dataset"

const fenceMarker = "```"

// RecoverTable extracts a table from raw generated text. The error, when
// non-nil, is always a *RecoveryError.
func RecoverTable(raw string) (*Table, error) {
	lines := searchDomain(raw)
	lines = dropBlank(lines)

	start := -1
	for i, l := range lines {
		if strings.Contains(l, ",") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, &RecoveryError{
			Reason:  ErrNoTabularContent,
			Raw:     raw,
			Cleaned: strings.Join(lines, "\n"),
			Detail:  "no line contains a comma",
		}
	}

	region := strings.Join(lines[start:], "\n")
	table, err := parseRegion(region)
	if err != nil {
		var re *RecoveryError
		if errors.As(err, &re) {
			re.Raw = raw
			re.Cleaned = region
		}
		return nil, err
	}
	return table, nil
}

// StripFences returns the text recovery searches for a table, with fence
// markers removed and the preferred fenced region selected.
func StripFences(raw string) string {
	return strings.Join(searchDomain(raw), "\n")
}

// fencedRegion is the body of one ``` block.
type fencedRegion struct {
	lines []string
}

func (r fencedRegion) hasDelimiter() bool {
	for _, l := range r.lines {
		if strings.Contains(l, ",") {
			return true
		}
	}
	return false
}

// searchDomain splits raw into lines and picks the lines recovery should
// look at. An unterminated fence runs to the end of the text.
func searchDomain(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	all := strings.Split(raw, "\n")

	var (
		regions  []fencedRegion
		current  *fencedRegion
		unfenced []string
	)
	for _, l := range all {
		l = strings.TrimRight(l, "\r")
		if strings.HasPrefix(strings.TrimSpace(l), fenceMarker) {
			if current == nil {
				current = &fencedRegion{}
			} else {
				regions = append(regions, *current)
				current = nil
			}
			continue
		}
		unfenced = append(unfenced, l)
		if current != nil {
			current.lines = append(current.lines, l)
		}
	}
	if current != nil {
		regions = append(regions, *current)
	}

	for _, r := range regions {
		if r.hasDelimiter() {
			return r.lines
		}
	}
	return unfenced
}

func dropBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// parseRegion parses the tabular region. The first record is the header.
func parseRegion(region string) (*Table, error) {
	cr := csv.NewReader(strings.NewReader(region))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			re := &RecoveryError{Reason: ErrParseFailure, Detail: err.Error(), cause: err}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				re.Line = pe.Line
			}
			return nil, re
		}
		if len(records) > 0 && len(rec) != len(records[0]) {
			return nil, &RecoveryError{
				Reason: ErrInconsistentColumnCount,
				Line:   len(records) + 1,
				Detail: fmt.Sprintf("record %d has %d fields, header has %d", len(records)+1, len(rec), len(records[0])),
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &RecoveryError{Reason: ErrNoTabularContent, Detail: "tabular region is empty"}
	}

	header := repairHeader(records[0])
	table, err := NewTable(RecoveredTableName, header, records[1:])
	if err != nil {
		return nil, &RecoveryError{Reason: ErrParseFailure, Detail: err.Error(), cause: err}
	}
	return table, nil
}
