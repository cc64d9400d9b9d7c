package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"llmperfbench/internal/config"
	"llmperfbench/internal/output"
)

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// Status reports whether a benchmark is running.
func (s *Server) Status(c *gin.Context) {
	c.JSON(http.StatusOK, s.jobs.Status())
}

// StartBenchmark merges the request body over the server's base
// configuration and submits the result as a job.
func (s *Server) StartBenchmark(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}

	cfg, err := s.base.Merge(body)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.abort(c, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.jobs.Submit(cfg)
	if errors.Is(err, ErrBusy) {
		s.abort(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":     job.ID,
		"status":    job.Status,
		"streamUrl": "/api/jobs/" + job.ID + "/stream",
	})
}

// ListJobs returns every job, oldest first.
func (s *Server) ListJobs(c *gin.Context) {
	jobs := s.jobs.List()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJob returns one job.
func (s *Server) GetJob(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("jobId"))
	if !ok {
		s.abort(c, http.StatusNotFound, "job "+c.Param("jobId")+" not found")
		return
	}
	c.JSON(http.StatusOK, job)
}

// ExportResults writes a job's results as CSV (default) or JSON lines.
func (s *Server) ExportResults(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("jobId"))
	if !ok {
		s.abort(c, http.StatusNotFound, "job "+c.Param("jobId")+" not found")
		return
	}

	format := output.Format(c.DefaultQuery("format", string(output.FormatCSV)))
	var (
		w           output.Writer
		contentType string
	)
	switch format {
	case output.FormatCSV:
		w, contentType = output.NewCSVWriter(c.Writer), "text/csv"
	case output.FormatJSONL:
		w, contentType = output.NewJSONLWriter(c.Writer), "application/x-ndjson"
	default:
		s.abort(c, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	prefix := job.OutputPrefix
	if prefix == "" {
		prefix = config.DefaultOutputPrefix
	}
	filename := output.FileName(prefix, format, job.CreatedAt)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := output.WriteAll(w, job.Results); err != nil {
		s.logger.Error("Export of job %s failed: %v", job.ID, err)
	}
}

func (s *Server) abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
