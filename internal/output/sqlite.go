package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"llmperfbench/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS benchmark_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	runs INTEGER NOT NULL,
	num_concurrent_requests INTEGER NOT NULL,
	ttft_ms REAL NOT NULL,
	tpot_ms REAL NOT NULL,
	throughput_tps REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_benchmark_results_case ON benchmark_results(input_tokens, output_tokens);
`

// SQLiteWriter appends results to the benchmark_results table.
type SQLiteWriter struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a result database at path.
func OpenSQLite(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate results db: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

func (s *SQLiteWriter) Write(r types.BenchmarkResult) error {
	_, err := s.db.Exec(
		`INSERT INTO benchmark_results
			(timestamp, model, input_tokens, output_tokens, runs, num_concurrent_requests, ttft_ms, tpot_ms, throughput_tps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTimestamp(r.Timestamp), r.Model, r.InputTokens, r.OutputTokens, r.Runs,
		r.NumConcurrentRequests, r.TTFTMs, r.TPOTMs, r.ThroughputTPS,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Results returns every stored result in insertion order.
func (s *SQLiteWriter) Results(ctx context.Context) ([]types.BenchmarkResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, model, input_tokens, output_tokens, runs, num_concurrent_requests, ttft_ms, tpot_ms, throughput_tps
		FROM benchmark_results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []types.BenchmarkResult
	for rows.Next() {
		var (
			r     types.BenchmarkResult
			stamp string
		)
		if err := rows.Scan(&stamp, &r.Model, &r.InputTokens, &r.OutputTokens, &r.Runs,
			&r.NumConcurrentRequests, &r.TTFTMs, &r.TPOTMs, &r.ThroughputTPS); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", stamp, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}
