package output

import (
	"encoding/json"
	"io"

	"llmperfbench/internal/types"
)

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLWriter writes JSON lines to w. Close does not close w.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return newJSONLWriter(w, nil)
}

func newJSONLWriter(w io.Writer, closer io.Closer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc, closer: closer}
}

func (j *JSONLWriter) Write(result types.BenchmarkResult) error {
	return j.enc.Encode(result)
}

func (j *JSONLWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
