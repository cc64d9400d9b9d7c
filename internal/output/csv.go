package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"llmperfbench/internal/types"
)

// CSVWriter writes a header row followed by one row per result.
type CSVWriter struct {
	w           *csv.Writer
	closer      io.Closer
	wroteHeader bool
}

// NewCSVWriter writes CSV to w. Close flushes but does not close w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return newCSVWriter(w, nil)
}

func newCSVWriter(w io.Writer, closer io.Closer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}
}

func (c *CSVWriter) Write(result types.BenchmarkResult) error {
	if !c.wroteHeader {
		if err := c.w.Write(Columns); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	if err := c.w.Write(Record(result)); err != nil {
		return err
	}
	// Flush per row so a streamed file is readable while the benchmark runs.
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Record renders a result in Columns order.
func Record(r types.BenchmarkResult) []string {
	return []string{
		formatTimestamp(r.Timestamp),
		r.Model,
		strconv.FormatUint(uint64(r.InputTokens), 10),
		strconv.FormatUint(uint64(r.OutputTokens), 10),
		strconv.FormatUint(uint64(r.Runs), 10),
		strconv.FormatUint(uint64(r.NumConcurrentRequests), 10),
		formatFloat(r.TTFTMs),
		formatFloat(r.TPOTMs),
		formatFloat(r.ThroughputTPS),
	}
}
