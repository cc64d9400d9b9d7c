// Package output persists benchmark results as CSV, JSON lines or SQLite.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"llmperfbench/internal/types"
)

// Format is a result file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatSQLite {
		return "db"
	}
	return string(f)
}

// ParseFormat resolves a save_format value. Unknown values fall back to CSV
// and report false.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, true
	case FormatJSONL:
		return FormatJSONL, true
	case FormatSQLite:
		return FormatSQLite, true
	default:
		return FormatCSV, false
	}
}

// Columns is the result column set shared by every format.
var Columns = []string{
	"@timestamp",
	"model",
	"input_tokens",
	"output_tokens",
	"runs",
	"num_concurrent_requests",
	"TTFT (ms)",
	"TPOT (ms)",
	"Throughput (TPS)",
}

// Writer persists results one at a time.
type Writer interface {
	Write(result types.BenchmarkResult) error
	Close() error
}

// FileName returns "<prefix>_<YYYYmmdd_HHMMSS>.<ext>" for the UTC time now.
func FileName(prefix string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.UTC().Format("20060102_150405"), format.Extension())
}

// Create opens a new result file under dir, creating dir if needed.
func Create(dir, prefix string, format Format, now time.Time) (Writer, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(prefix, format, now))

	if format == FormatSQLite {
		w, err := OpenSQLite(path)
		if err != nil {
			return nil, "", err
		}
		return w, path, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create result file: %w", err)
	}
	if format == FormatJSONL {
		return newJSONLWriter(f, f), path, nil
	}
	return newCSVWriter(f, f), path, nil
}

// WriteAll writes every result and closes w.
func WriteAll(w Writer, results []types.BenchmarkResult) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
