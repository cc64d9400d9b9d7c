package server

import (
	"time"

	"llmperfbench/internal/types"
)

// JobStatus is the lifecycle state of a benchmark job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a benchmark submitted through the API.
type Job struct {
	ID            string                  `json:"id"`
	Status        JobStatus               `json:"status"`
	Model         string                  `json:"model,omitempty"`
	BaseURL       string                  `json:"baseUrl"`
	Cases         []types.TestCase        `json:"cases"`
	Runs          int                     `json:"runs"`
	Concurrency   int                     `json:"concurrency"`
	OutputPrefix  string                  `json:"outputPrefix"`
	TotalRuns     int                     `json:"totalRuns"`
	CompletedRuns int                     `json:"completedRuns"`
	Progress      float64                 `json:"progress"` // 0-100
	Message       string                  `json:"message"`
	Warnings      []string                `json:"warnings,omitempty"`
	Results       []types.BenchmarkResult `json:"results"`
	Error         string                  `json:"error,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	StartedAt     *time.Time              `json:"startedAt,omitempty"`
	CompletedAt   *time.Time              `json:"completedAt,omitempty"`
}

// Terminal reports whether the job has finished.
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

func (j *Job) snapshot() Job {
	out := *j
	out.Cases = append([]types.TestCase(nil), j.Cases...)
	out.Warnings = append([]string(nil), j.Warnings...)
	out.Results = append([]types.BenchmarkResult{}, j.Results...)
	return out
}

// SystemStatus summarizes the job manager.
type SystemStatus struct {
	Busy       bool      `json:"busy"`
	ActiveJobs int       `json:"activeJobs"`
	TotalJobs  int       `json:"totalJobs"`
	Clients    int       `json:"websocketClients"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
