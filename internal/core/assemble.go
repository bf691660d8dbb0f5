package core

// assemble.go serializes tables into downloadable artifacts.
//
// Column order and row order are preserved exactly for every encoding.
// Values are written as text, so a CSV artifact read back with ReadTable
// reproduces the original table cell for cell.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/xitongsys/parquet-go/writer"
	"github.com/xuri/excelize/v2"
)

// Format is an artifact encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// ParseFormat converts user input to a Format. Empty input yields def.
func ParseFormat(s string, def Format) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return def, nil
	case FormatCSV, FormatXLSX, FormatParquet:
		return f, nil
	default:
		return "", &ConfigurationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q (want csv, xlsx or parquet)", s)}
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv"
	}
}

// ArtifactName returns the deterministic file name for a synthesized table.
func ArtifactName(table string, f Format) string {
	return "synthetic_" + table + "." + string(f)
}

// GeneratedArtifactName returns the fixed name used for the single
// document produced from a prompt.
func GeneratedArtifactName(f Format) string {
	return RecoveredTableName + "." + string(f)
}

// Assemble writes t to w in the given format.
func Assemble(w io.Writer, t *Table, f Format) error {
	switch f {
	case FormatCSV:
		return EncodeCSV(w, t)
	case FormatXLSX:
		return EncodeXLSX(w, t)
	case FormatParquet:
		return EncodeParquet(w, t)
	default:
		return &ConfigurationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", f)}
	}
}

// EncodeCSV writes the header and rows as comma-separated text.
func EncodeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := writeCSVRecord(w, cw, t.Header()); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeCSVRecord(w, cw, row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeCSVRecord quotes a lone empty field, which encoding/csv would
// otherwise emit as a blank line that readers skip.
func writeCSVRecord(w io.Writer, cw *csv.Writer, rec []string) error {
	if len(rec) == 1 && rec[0] == "" {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\"\"\n")
		return err
	}
	return cw.Write(rec)
}

// EncodeXLSX writes t as a single-sheet workbook. The sheet is named after
// the table and the header occupies the first row.
func EncodeXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	writeRow := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return sw.SetRow(cell, cells)
	}

	if err := writeRow(1, t.Header()); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

// sheetName makes a valid worksheet name: at most 31 characters, none of
// []:*?/\ and never empty.
func sheetName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == 31 {
			break
		}
		if strings.ContainsRune(`[]:*?/\`, r) {
			r = '_'
		}
		b.WriteRune(r)
		n++
	}
	if b.Len() == 0 {
		return "Sheet1"
	}
	return b.String()
}

type parquetField struct {
	Tag    string          `json:"Tag"`
	Fields []*parquetField `json:"Fields,omitempty"`
}

// EncodeParquet writes t as a parquet file with one optional UTF8 column per
// table column. Column names are reduced to identifier characters since the
// parquet schema tag syntax reserves commas and equals signs.
func EncodeParquet(w io.Writer, t *Table) error {
	names := parquetNames(t.Header())

	root := parquetField{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, n := range names {
		root.Fields = append(root.Fields, &parquetField{
			Tag: "name=" + n + ", type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, repetitiontype=OPTIONAL",
		})
	}
	schema, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("parquet: schema: %w", err)
	}

	pw, err := writer.NewJSONWriterFromWriter(string(schema), w, 4)
	if err != nil {
		return fmt.Errorf("parquet: writer: %w", err)
	}

	for i, row := range t.Rows {
		rec := make(map[string]string, len(row))
		for c, v := range row {
			rec[names[c]] = v
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("parquet: row %d: %w", i+1, err)
		}
		if err := pw.Write(string(b)); err != nil {
			return fmt.Errorf("parquet: row %d: %w", i+1, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("parquet: finish: %w", err)
	}
	return nil
}

// parquetNames maps column names to unique identifiers starting with an
// upper-case letter.
func parquetNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		var b strings.Builder
		for _, r := range h {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		}
		name := b.String()
		if name == "" || !unicode.IsLetter(rune(name[0])) {
			name = "C" + name
		}
		name = strings.ToUpper(name[:1]) + name[1:]

		candidate := name
		for n := 1; used[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}
