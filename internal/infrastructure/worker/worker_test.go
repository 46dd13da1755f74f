package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWorker struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
	mu       *sync.Mutex
}

func (w recordingWorker) record(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	*w.log = append(*w.log, s)
}

func (w recordingWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.record("start " + w.name)
	return nil
}

func (w recordingWorker) Stop() error {
	w.record("stop " + w.name)
	return w.stopErr
}

func (w recordingWorker) Name() string { return w.name }

func TestManager_StartStopOrder(t *testing.T) {
	var (
		log []string
		mu  sync.Mutex
	)
	m := NewManager(zap.NewNop())
	m.Register(recordingWorker{name: "a", log: &log, mu: &mu})
	m.Register(recordingWorker{name: "broken", startErr: errors.New("boom"), log: &log, mu: &mu})
	m.Register(recordingWorker{name: "b", stopErr: errors.New("stuck"), log: &log, mu: &mu})
	assert.Equal(t, 3, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	err := m.StopAll()
	assert.ErrorContains(t, err, "b: stuck")
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.StopAll())

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func TestMaintenanceWorker_RunsScheduledJobs(t *testing.T) {
	var runs atomic.Int32
	w := NewMaintenanceWorker(zap.NewNop(), Job{
		Name:     "tick",
		Schedule: "* * * * * *",
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestMaintenanceWorker_BadSchedule(t *testing.T) {
	w := NewMaintenanceWorker(zap.NewNop(), Job{Name: "bad", Schedule: "every now and then", Run: func(context.Context) error { return nil }})
	assert.Error(t, w.Start(context.Background()))
}

func TestMaintenanceWorker_RunJobAppliesTimeout(t *testing.T) {
	w := NewMaintenanceWorker(zap.NewNop())
	var deadline bool
	w.RunJob(Job{Name: "timed", Timeout: time.Second, Run: func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return errors.New("logged, not returned")
	}})
	assert.True(t, deadline)
}
