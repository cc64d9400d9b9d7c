package server

import (
	"encoding/json"
	"time"
)

// Event types shared by the SSE stream and the WebSocket hub.
const (
	EventJob       = "job"
	EventResult    = "result"
	EventWarning   = "warning"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventPing      = "ping"
)

// Event is a job update delivered to stream listeners and WebSocket clients.
type Event struct {
	Type      string      `json:"type"`
	JobID     string      `json:"jobId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Terminal reports whether no further events follow for the job.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

// WarningData describes a run that finished with some failed requests.
type WarningData struct {
	InputTokens  uint32 `json:"inputTokens"`
	OutputTokens uint32 `json:"outputTokens"`
	Run          int    `json:"run"` // 1-based
	Failed       int    `json:"failed"`
	Total        int    `json:"total"`
	Message      string `json:"message"`
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
