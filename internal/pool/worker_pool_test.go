package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitWaitRunsJob(t *testing.T) {
	t.Parallel()

	p := New(Config{MaxWorkers: 2, QueueSize: 4})
	defer p.Close()

	var ran atomic.Bool
	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran.Load())
}

func TestSubmitWaitPropagatesJobError(t *testing.T) {
	t.Parallel()

	p := New(Config{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()

	wantErr := errors.New("boom")
	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Failed)
}

func TestConcurrencyIsBounded(t *testing.T) {
	t.Parallel()

	const workers = 3
	p := New(Config{MaxWorkers: workers, QueueSize: 32})
	defer p.Close()

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.SubmitWait(context.Background(), func(ctx context.Context) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Equal(t, int64(20), p.Stats().Completed)
}

func TestSubmitRejectsWhenFull(t *testing.T) {
	t.Parallel()

	p := New(Config{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()

	release := make(chan struct{})
	blocker := func(ctx context.Context) error {
		<-release
		return nil
	}

	require.NoError(t, p.Submit(context.Background(), blocker))
	// Fill the queue behind the busy worker, then overflow it.
	var rejected bool
	for i := 0; i < 10; i++ {
		if err := p.Submit(context.Background(), blocker); errors.Is(err, ErrPoolExhausted) {
			rejected = true
			break
		}
	}
	close(release)

	assert.True(t, rejected)
	assert.Greater(t, p.Stats().Rejected, int64(0))
}

func TestClosedPoolRejectsJobs(t *testing.T) {
	t.Parallel()

	p := New(Config{MaxWorkers: 1, QueueSize: 1})
	p.Close()

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)

	// Double close is safe.
	p.Close()
}

func TestPanicsAreRecovered(t *testing.T) {
	t.Parallel()

	var caught atomic.Bool
	p := New(Config{
		MaxWorkers:   1,
		QueueSize:    1,
		PanicHandler: func(any) { caught.Store(true) },
	})
	defer p.Close()

	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.True(t, caught.Load())
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()

	p := New(Config{})
	defer p.Close()

	require.NoError(t, p.SubmitWait(context.Background(), func(ctx context.Context) error {
		return nil
	}))
}
