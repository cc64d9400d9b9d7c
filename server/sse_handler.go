package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"llmperfbench/internal/logging"
)

const ssePingInterval = 15 * time.Second

// StreamJob streams a job's events as Server-Sent Events. The first event
// is a snapshot of the job; the stream ends after the completed or failed
// event.
func (s *Server) StreamJob(c *gin.Context) {
	jobID := c.Param("jobId")
	events, cancel, job, ok := s.jobs.Subscribe(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "job " + jobID + " not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	defer cancel()

	log := s.logger.WithContext(&logging.LogContext{JobID: jobID, Operation: "stream"})
	log.Debug("SSE client connected")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(EventJob, Event{Type: EventJob, JobID: jobID, Timestamp: time.Now(), Data: job})
	c.Writer.Flush()
	if job.Terminal() {
		final := terminalEvent(job)
		c.SSEvent(final.Type, final)
		return
	}

	ticker := time.NewTicker(ssePingInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			log.Debug("SSE client disconnected")
			return false
		case <-ticker.C:
			c.SSEvent(EventPing, Event{Type: EventPing, JobID: jobID, Timestamp: time.Now()})
			return true
		case event, open := <-events:
			if !open {
				// The terminal event may have been dropped; report the final state.
				if last, ok := s.jobs.Get(jobID); ok && last.Terminal() {
					final := terminalEvent(last)
					c.SSEvent(final.Type, final)
				}
				return false
			}
			c.SSEvent(event.Type, event)
			return !event.Terminal()
		}
	})
}

func terminalEvent(job Job) Event {
	eventType := EventCompleted
	if job.Status == JobFailed {
		eventType = EventFailed
	}
	return Event{Type: eventType, JobID: job.ID, Timestamp: time.Now(), Data: job}
}
