package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	schedule string
	failFor  int32 // attempts that fail before success
	calls    atomic.Int32
	block    bool
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n <= j.failFor {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(nil).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "@hourly"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 30 6 * * 1-5"}))

	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "c", schedule: "not a cron"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Empty(t, s.cron.Entries())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunNow_Retries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "flaky", failFor: 2}

	res := s.RunNow(job)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Error)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	assert.Len(t, history.Results, 1)
}

func TestRunNow_GivesUp(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", failFor: 100}

	res := s.RunNow(job)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "transient", res.Error)
	assert.Equal(t, int32(3), job.calls.Load())
}

func TestRunJob_Unknown(t *testing.T) {
	assert.Error(t, newTestScheduler().RunJob("missing"))
}

func TestRunJob_Stats(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "ok", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("ok"))
	s.wg.Wait()

	stats := s.GetJobStats()["ok"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastRun)
	assert.Empty(t, stats.LastError)
	assert.Equal(t, "@daily", stats.Schedule)
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := newTestScheduler().WithRetry(5, time.Hour)
	job := &countingJob{name: "slow", schedule: "@hourly", block: true}
	require.NoError(t, s.AddJob(job))
	s.Start()

	require.NoError(t, s.RunJob("slow"))
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	history, err := s.GetJobHistory("slow")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, h.Stats("warm", "@hourly").SuccessRate)

	for i := 0; i < maxHistory+10; i++ {
		res := JobResult{JobName: "warm", Success: i%2 == 0}
		if !res.Success {
			res.Error = fmt.Sprintf("attempt %d", i)
		}
		h.AddResult(res)
	}
	assert.Len(t, h.Results, maxHistory)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("attempt %d", maxHistory+9), last.Error)

	st := h.Stats("warm", "@hourly")
	assert.Equal(t, maxHistory, st.TotalRuns)
	assert.Equal(t, maxHistory/2, st.FailureCount)
	assert.InDelta(t, 0.5, st.SuccessRate, 1e-9)
	assert.Equal(t, last.Error, st.LastError)
}

func TestRunAllNow(t *testing.T) {
	s := newTestScheduler().WithRetry(0, 0)
	ok := &countingJob{name: "b_ok", schedule: "@hourly"}
	bad := &countingJob{name: "a_bad", schedule: "@hourly", failFor: 10}
	require.NoError(t, s.AddJob(ok))
	require.NoError(t, s.AddJob(bad))

	results := s.RunAllNow()
	require.Len(t, results, 2)
	assert.Equal(t, "a_bad", results[0].JobName)
	assert.False(t, results[0].Success)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Equal(t, "b_ok", results[1].JobName)
	assert.True(t, results[1].Success)
}
