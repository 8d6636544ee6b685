package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_OnlyLastCallGoesThrough(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	ctx := context.Background()

	results := make([]error, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.Wait(ctx)
		}(i)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	passed := 0
	for _, err := range results {
		if err == nil {
			passed++
		} else {
			assert.ErrorIs(t, err, ErrSuperseded)
		}
	}
	assert.Equal(t, 1, passed)
	assert.NoError(t, results[2])
}

func TestDebouncer_WaitsForQuietPeriod(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	start := time.Now()
	require.NoError(t, d.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(time.Hour)

	done := make(chan error, 1)
	go func() { done <- d.Wait(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	d.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDebouncerStopped)
		assert.True(t, IsSuperseded(err))
	case <-time.After(time.Second):
		t.Fatal("pending call was not released by Stop")
	}

	assert.ErrorIs(t, d.Wait(context.Background()), ErrDebouncerStopped)
}

func TestDebouncer_ContextCancel(t *testing.T) {
	d := NewDebouncer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
}
