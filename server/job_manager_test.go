package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/config"
	"llmperfbench/internal/logging"
	"llmperfbench/internal/types"
)

func submitConfig() *config.Config {
	cfg := baseConfig()
	cfg.BaseURL = "http://llm.local/v1"
	cfg.Model = "m"
	cfg.Cases = []config.Case{{InputTokens: 8, OutputTokens: 4}}
	return cfg
}

func TestSlowListenerStillSeesEnd(t *testing.T) {
	release := make(chan struct{})
	jm := NewJobManager(fakeLauncher(release), nil, logging.Discard())

	job, err := jm.Submit(submitConfig())
	require.NoError(t, err)
	events, cancel, _, ok := jm.Subscribe(job.ID)
	require.True(t, ok)
	defer cancel()

	// Nobody reads, so the buffer fills and later events are dropped.
	for i := 0; i < listenerBuffer+10; i++ {
		jm.update(job.ID, EventJob, nil)
	}
	close(release)
	jm.Wait()

	received := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				assert.Equal(t, listenerBuffer, received)
				final, ok := jm.Get(job.ID)
				require.True(t, ok)
				assert.Equal(t, JobCompleted, final.Status)
				assert.Equal(t, EventCompleted, terminalEvent(final).Type)
				return
			}
			received++
		case <-timeout:
			t.Fatal("listener channel was not closed after the job finished")
		}
	}
}

func TestSubscribeFinishedJobIsClosed(t *testing.T) {
	jm := NewJobManager(fakeLauncher(nil), nil, logging.Discard())
	job, err := jm.Submit(submitConfig())
	require.NoError(t, err)
	jm.Wait()

	events, cancel, snap, ok := jm.Subscribe(job.ID)
	require.True(t, ok)
	defer cancel()
	assert.True(t, snap.Terminal())
	_, open := <-events
	assert.False(t, open)
}

func TestShutdownCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	launch := func(ctx context.Context, cfg *config.Config, reporter benchmark.Reporter) ([]types.BenchmarkResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	jm := NewJobManager(launch, nil, logging.Discard())

	job, err := jm.Submit(submitConfig())
	require.NoError(t, err)
	events, cancel, _, ok := jm.Subscribe(job.ID)
	require.True(t, ok)
	defer cancel()
	<-started

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, jm.Shutdown(ctx))

	final, ok := jm.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobFailed, final.Status)
	assert.Equal(t, context.Canceled.Error(), final.Error)
	assert.False(t, jm.Status().Busy)

	var last Event
	for event := range events {
		last = event
	}
	assert.Equal(t, EventFailed, last.Type)
}

func TestShutdownGivesUpOnStuckJob(t *testing.T) {
	release := make(chan struct{})
	jm := NewJobManager(fakeLauncher(release), nil, logging.Discard())
	_, err := jm.Submit(submitConfig())
	require.NoError(t, err)

	ctx, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	err = jm.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	jm.Wait()
}
