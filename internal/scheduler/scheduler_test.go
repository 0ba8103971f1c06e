package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/service"
)

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) Cleanup(context.Context) (service.CleanupResult, error) {
	c.calls.Add(1)
	return service.CleanupResult{CodesCleaned: 1}, c.err
}

func TestAddCleanup_RejectsBadSpec(t *testing.T) {
	s := New(&countingCleaner{}, nil)
	assert.Error(t, s.AddCleanup("every now and then"))
	assert.NoError(t, s.AddCleanup("@hourly"))
	assert.NoError(t, s.AddCleanup("*/5 * * * *"))
}

func TestRunCleanup(t *testing.T) {
	c := &countingCleaner{}
	s := New(c, nil)
	s.RunCleanup()
	c.err = errors.New("db down")
	s.RunCleanup()
	assert.Equal(t, int32(2), c.calls.Load())
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	c := &countingCleaner{}
	s := New(c, nil)
	require.NoError(t, s.AddCleanup("@every 1s"))
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	assert.Eventually(t, func() bool { return c.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
