package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/config"
	"llmperfbench/internal/logging"
	"llmperfbench/internal/types"
)

// ErrBusy is returned when a job is submitted while another one runs.
var ErrBusy = errors.New("a benchmark job is already running")

const listenerBuffer = 64

// Launcher runs one benchmark, reporting progress to reporter.
type Launcher func(ctx context.Context, cfg *config.Config, reporter benchmark.Reporter) ([]types.BenchmarkResult, error)

// JobManager runs at most one benchmark at a time and keeps every job's
// state for inspection and streaming.
type JobManager struct {
	jobs      map[string]*Job
	order     []string
	listeners map[string][]chan Event
	active    int
	hub       *Hub
	launch    Launcher
	logger    *logging.Logger
	mutex     sync.RWMutex
	wg        sync.WaitGroup

	// ctx spans the manager's lifetime; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobManager creates a job manager. hub may be nil.
func NewJobManager(launch Launcher, hub *Hub, logger *logging.Logger) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		jobs:      make(map[string]*Job),
		listeners: make(map[string][]chan Event),
		hub:       hub,
		launch:    launch,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit registers a job for cfg and starts it in the background.
func (jm *JobManager) Submit(cfg *config.Config) (Job, error) {
	jm.mutex.Lock()
	if jm.active > 0 {
		jm.mutex.Unlock()
		return Job{}, ErrBusy
	}

	cases := cfg.TestCases()
	job := &Job{
		ID:           uuid.New().String(),
		Status:       JobQueued,
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		Cases:        cases,
		Runs:         cfg.Runs,
		Concurrency:  cfg.NumConcurrentRequests,
		OutputPrefix: cfg.OutputPrefixName,
		TotalRuns:    len(cases) * cfg.Runs,
		Message:      "Benchmark queued",
		Results:      []types.BenchmarkResult{},
		CreatedAt:    time.Now(),
	}
	jm.jobs[job.ID] = job
	jm.order = append(jm.order, job.ID)
	jm.active++
	snap := job.snapshot()
	jm.mutex.Unlock()

	jm.logger.InfoWithFields("Job created", map[string]interface{}{
		"jobId": job.ID,
		"cases": len(cases),
		"runs":  cfg.Runs,
	})

	jm.wg.Add(1)
	go jm.execute(job.ID, cfg)
	return snap, nil
}

func (jm *JobManager) execute(id string, cfg *config.Config) {
	defer jm.wg.Done()
	log := jm.logger.WithContext(&logging.LogContext{JobID: id, Operation: "benchmark"})

	defer func() {
		if r := recover(); r != nil {
			log.ErrorWithFields("Benchmark panicked", map[string]interface{}{
				"error": r,
				"stack": string(debug.Stack()),
			})
			jm.finish(id, nil, fmt.Errorf("internal error: %v", r))
		}
	}()

	jm.update(id, EventJob, func(j *Job) {
		now := time.Now()
		j.Status = JobRunning
		j.StartedAt = &now
		j.Message = "Benchmark started"
	})
	log.Info("Benchmark started")

	results, err := jm.launch(jm.ctx, cfg, newJobReporter(jm, id))
	if err != nil {
		log.Error("Benchmark failed: %v", err)
	} else {
		log.Info("Benchmark completed with %d results", len(results))
	}
	jm.finish(id, results, err)
}

func (jm *JobManager) finish(id string, results []types.BenchmarkResult, err error) {
	eventType := EventCompleted
	if err != nil {
		eventType = EventFailed
	}

	jm.update(id, eventType, func(j *Job) {
		now := time.Now()
		j.CompletedAt = &now
		if err != nil {
			j.Status = JobFailed
			j.Error = err.Error()
			j.Message = "Benchmark failed"
			return
		}
		j.Status = JobCompleted
		j.Results = append([]types.BenchmarkResult{}, results...)
		j.CompletedRuns = len(results)
		j.Progress = 100
		j.Message = "Benchmark completed successfully"
	})

	jm.mutex.Lock()
	if jm.active > 0 {
		jm.active--
	}
	jm.mutex.Unlock()
}

// update mutates the job under the lock and publishes a snapshot of it.
func (jm *JobManager) update(id, eventType string, mutate func(*Job)) {
	jm.publish(id, eventType, mutate, nil)
}

// publish mutates the job and sends an event carrying data, or the job
// snapshot when data is nil.
func (jm *JobManager) publish(id, eventType string, mutate func(*Job), data interface{}) {
	jm.mutex.Lock()
	job, ok := jm.jobs[id]
	if !ok {
		jm.mutex.Unlock()
		return
	}
	if mutate != nil {
		mutate(job)
	}
	if data == nil {
		data = job.snapshot()
	}
	listeners := append([]chan Event(nil), jm.listeners[id]...)
	event := Event{Type: eventType, JobID: id, Timestamp: time.Now(), Data: data}
	// Send while holding the lock so a concurrent unsubscribe cannot close
	// a channel between the copy and the send.
	for _, ch := range listeners {
		select {
		case ch <- event:
		default:
			jm.logger.Warn("Dropping %s event for slow listener of job %s", eventType, id)
		}
	}
	// A dropped terminal event must still end the stream: closing the
	// channel tells listeners to read the final state from the job.
	if event.Terminal() {
		for _, ch := range listeners {
			close(ch)
		}
		delete(jm.listeners, id)
	}
	jm.mutex.Unlock()

	if jm.hub != nil {
		if payload, err := event.ToJSON(); err == nil {
			jm.hub.BroadcastMessage(payload)
		}
	}
}

// Get returns a snapshot of the job.
func (jm *JobManager) Get(id string) (Job, bool) {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()
	job, ok := jm.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// List returns snapshots of every job, oldest first.
func (jm *JobManager) List() []Job {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()
	jobs := make([]Job, 0, len(jm.order))
	for _, id := range jm.order {
		jobs = append(jobs, jm.jobs[id].snapshot())
	}
	return jobs
}

// Subscribe registers a listener for the job's events and returns the job
// state at registration time, so no event between the two is lost. The
// channel is closed once the job reaches a terminal state.
func (jm *JobManager) Subscribe(id string) (<-chan Event, func(), Job, bool) {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return nil, func() {}, Job{}, false
	}
	ch := make(chan Event, listenerBuffer)
	if job.Terminal() {
		close(ch)
		return ch, func() {}, job.snapshot(), true
	}
	jm.listeners[id] = append(jm.listeners[id], ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			jm.mutex.Lock()
			defer jm.mutex.Unlock()
			listeners := jm.listeners[id]
			for i, l := range listeners {
				if l == ch {
					jm.listeners[id] = append(listeners[:i], listeners[i+1:]...)
					break
				}
			}
			if len(jm.listeners[id]) == 0 {
				delete(jm.listeners, id)
			}
		})
	}
	return ch, cancel, job.snapshot(), true
}

// Status summarizes the manager.
func (jm *JobManager) Status() SystemStatus {
	jm.mutex.RLock()
	status := SystemStatus{
		Busy:       jm.active > 0,
		ActiveJobs: jm.active,
		TotalJobs:  len(jm.jobs),
		Timestamp:  time.Now(),
	}
	jm.mutex.RUnlock()
	if jm.hub != nil {
		status.Clients = jm.hub.ClientCount()
	}
	return status
}

// Wait blocks until every submitted job has finished.
func (jm *JobManager) Wait() {
	jm.wg.Wait()
}

// Shutdown cancels running jobs and waits for them to record their final
// state, or for ctx to end.
func (jm *JobManager) Shutdown(ctx context.Context) error {
	jm.cancel()

	done := make(chan struct{})
	go func() {
		jm.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}
