package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
)

// ============================================================================
// Recovery Benchmarks
// ============================================================================

// BenchmarkRecoverTable benchmarks a typical chatty model answer.
// This runs once per generation request.
func BenchmarkRecoverTable(b *testing.B) {
	raw := "Sure! Here is the dataset you asked for:\n\n```csv\n" +
		string(generateTestCSV(100)) +
		"```\n\nLet me know if you need more rows."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RecoverTable(raw); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRecoverTable_Large benchmarks recovery of a long unfenced answer.
func BenchmarkRecoverTable_Large(b *testing.B) {
	raw := "Dataset:\n" + string(generateTestCSV(10000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RecoverTable(raw); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRecoverTable_NoTable benchmarks the failure path.
func BenchmarkRecoverTable_NoTable(b *testing.B) {
	raw := strings.Repeat("I am sorry but I cannot produce that data.\n", 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = RecoverTable(raw)
	}
}

func BenchmarkStripFences(b *testing.B) {
	raw := "intro\n```\nnotes only\n```\n```csv\n" + string(generateTestCSV(100)) + "```\n"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		StripFences(raw)
	}
}

// ============================================================================
// Ingestion Benchmarks
// ============================================================================

// BenchmarkReadTable benchmarks the upload path: decoding, sanitizing,
// parsing and classification.
func BenchmarkReadTable(b *testing.B) {
	data := generateTestCSV(1000)

	b.ResetTimer()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		if _, err := ReadTable("bench", bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadTable_Large(b *testing.B) {
	data := generateTestCSV(50000)

	b.ResetTimer()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		if _, err := ReadTable("bench", bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecodeInput_InvalidUTF8 benchmarks sanitizing a file with
// scattered invalid bytes.
func BenchmarkDecodeInput_InvalidUTF8(b *testing.B) {
	line := []byte("1001,Jos\xe9 Garc\xeda,caf\xe9\n")
	data := bytes.Repeat(line, 10000)

	b.ResetTimer()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		if _, err := io.Copy(io.Discard, decodeInput(bytes.NewReader(data))); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCSVParsing_Comparison compares plain encoding/csv against the
// full ReadTable path to show the cost of decoding and classification.
func BenchmarkCSVParsing_Comparison(b *testing.B) {
	data := generateTestCSV(1000)

	b.Run("encoding_csv", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			r := csv.NewReader(bytes.NewReader(data))
			if _, err := r.ReadAll(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ReadTable", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := ReadTable("bench", bytes.NewReader(data)); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// ============================================================================
// Normalizer Benchmarks
// ============================================================================

func BenchmarkHashFreeText(b *testing.B) {
	t := mustBenchTable(b, generateTestCSV(1000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		HashFreeText(t)
	}
}

func BenchmarkTruncateFreeText(b *testing.B) {
	t := mustBenchTable(b, generateTestCSV(1000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := TruncateFreeText(t, 8); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFingerprint(b *testing.B) {
	s := strings.Repeat("lorem ipsum ", 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Fingerprint(s)
	}
}

// ============================================================================
// Schema Inference Benchmarks
// ============================================================================

// BenchmarkInferSchema benchmarks a parent table with several child tables
// that reference it by the same key name.
func BenchmarkInferSchema(b *testing.B) {
	tables := relatedTables(b, 5, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := InferSchema(tables); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkClassifyColumns(b *testing.B) {
	t := mustBenchTable(b, generateTestCSV(1000))
	opts := ClassifyOptions{CategoricalMaxDistinct: 10}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ClassifyColumns(t, opts)
	}
}

// ============================================================================
// Assembler Benchmarks
// ============================================================================

func BenchmarkAssemble(b *testing.B) {
	t := mustBenchTable(b, generateTestCSV(1000))

	for _, f := range []Format{FormatCSV, FormatXLSX, FormatParquet} {
		b.Run(string(f), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := Assemble(io.Discard, t, f); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkRecoverTableParallel benchmarks concurrent generation requests.
func BenchmarkRecoverTableParallel(b *testing.B) {
	raw := "```\n" + string(generateTestCSV(100)) + "```"

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := RecoverTable(raw); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkFingerprintParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Fingerprint("john@example.com")
		}
	})
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateTestCSV generates CSV data with the specified number of rows.
func generateTestCSV(rows int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// Header
	w.Write([]string{"ID", "Name", "Email", "Date", "Amount", "Status"})

	// Data rows
	for i := 0; i < rows; i++ {
		w.Write([]string{
			strconv.Itoa(1000 + i),
			"John Doe",
			fmt.Sprintf("john%d@example.com", i),
			"2024-01-15",
			"1234.56",
			"active",
		})
	}
	w.Flush()

	return buf.Bytes()
}

func mustBenchTable(b *testing.B, data []byte) *Table {
	b.Helper()
	t, err := ReadTable("bench", bytes.NewReader(data))
	if err != nil {
		b.Fatal(err)
	}
	return t
}

// relatedTables returns one parent keyed by customer_id and children whose
// keys are subsets of it.
func relatedTables(b *testing.B, children, rows int) []*Table {
	b.Helper()
	parentRows := make([][]string, rows)
	for i := range parentRows {
		parentRows[i] = []string{strconv.Itoa(i), "customer " + strconv.Itoa(i)}
	}
	parent, err := NewTable("customers", []string{"customer_id", "name"}, parentRows)
	if err != nil {
		b.Fatal(err)
	}

	tables := []*Table{parent}
	for c := 0; c < children; c++ {
		childRows := make([][]string, rows/2)
		for i := range childRows {
			childRows[i] = []string{strconv.Itoa(i * 2), "note"}
		}
		child, err := NewTable(fmt.Sprintf("child_%d", c), []string{"customer_id", "note"}, childRows)
		if err != nil {
			b.Fatal(err)
		}
		tables = append(tables, child)
	}
	return tables
}
