package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/forgecomply/forgecomply360/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (c *countingSweeper) Run(context.Context) (service.SweepResult, error) {
	c.runs.Add(1)
	return service.SweepResult{}, c.err
}

func TestSchedulerSweepsImmediatelyAndOnTick(t *testing.T) {
	sweeper := &countingSweeper{}
	scheduler := NewScheduler(sweeper, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestSchedulerKeepsRunningAfterFailure(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	scheduler := NewScheduler(sweeper, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestNewSchedulerDefaultsInterval(t *testing.T) {
	scheduler := NewScheduler(&countingSweeper{}, 0, nil)
	assert.Equal(t, time.Hour, scheduler.interval)
}
