package credit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunCountdown_StopsAtZeroAndWakes(t *testing.T) {
	c := NewController(&fakeSource{})
	c.Initialize(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunCountdown(ctx, c, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return c.DisplaySeconds() == 0 }, time.Second, 5*time.Millisecond)

	c.Adopt(2)
	assert.Eventually(t, func() bool { return c.DisplaySeconds() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRunCountdown_IdleAtZero(t *testing.T) {
	c := NewController(&fakeSource{})
	c.Initialize(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCountdown(ctx, c, time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), c.DisplaySeconds())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("countdown did not stop on cancel")
	}
}

type countingSource struct {
	fakeSource
	calls atomic.Int32
}

func (s *countingSource) FetchBalance(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 0, errors.New("offline")
}

func TestRunPoller_ReportsErrors(t *testing.T) {
	src := &countingSource{}
	c := NewController(src)
	c.Initialize(10)

	var notices atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunPoller(ctx, c, 5*time.Millisecond, func(err error) { notices.Add(1) })

	assert.Eventually(t, func() bool { return notices.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(10), c.Balance().ServerSeconds)
}
