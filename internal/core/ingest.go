package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadTable parses comma-separated input with a required header row.
//
// The reader is wrapped with BOM handling and UTF-8 sanitizing first. Blank
// or repeated header names are repaired (see repairHeader). A record whose
// field count differs from the header fails the whole file, as does any
// quoting error from the CSV parser.
func ReadTable(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(decodeInput(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("table %q: %w", name, ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("table %q: invalid csv: %w", name, err)
	}
	header = repairHeader(header)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table %q: invalid csv: %w", name, err)
		}
		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("table %q line %d: %w: got %d fields, want %d",
				name, line, ErrInconsistentColumnCount, len(rec), len(header))
		}
		rows = append(rows, rec)
	}

	return NewTable(name, header, rows)
}

// ReadTableFile opens path and reads it with ReadTable, naming the table
// after the file stem.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTable(TableNameFromFilename(path), f)
}

// TableNameFromFilename returns the file name up to its first dot:
// "data/orders.csv" -> "orders", "sales.2024.csv" -> "sales".
func TableNameFromFilename(filename string) string {
	base := filepath.Base(filename)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
