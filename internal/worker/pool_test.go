package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobsBeforeStop(t *testing.T) {
	var ran atomic.Int32
	p := NewPool(4, 64, func(context.Context, Job) { ran.Add(1) })
	p.Start(context.Background())

	for range 50 {
		require.NoError(t, p.Submit(Job{MessageID: uuid.New()}))
	}
	p.Stop()

	assert.EqualValues(t, 50, ran.Load())
	assert.ErrorIs(t, p.Submit(Job{}), ErrPoolClosed)
}

func TestSubmitReportsFullQueue(t *testing.T) {
	p := NewPool(1, 1, func(context.Context, Job) {})
	require.NoError(t, p.Submit(Job{}))
	assert.ErrorIs(t, p.Submit(Job{}), ErrQueueFull)
	p.Stop()
}

func TestChainOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		trace []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		trace = append(trace, s)
	}
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, job Job) {
				record(name + ">")
				next(ctx, job)
				record("<" + name)
			}
		}
	}

	h := Chain(func(context.Context, Job) { record("job") }, mw("a"), mw("b"))
	h(context.Background(), Job{})

	assert.Equal(t, []string{"a>", "b>", "job", "<b", "<a"}, trace)
}

func TestJobsOutliveStartContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seen := make(chan error, 1)
	p := NewPool(1, 1, func(ctx context.Context, _ Job) { seen <- ctx.Err() })
	p.Start(ctx)
	cancel()

	require.NoError(t, p.Submit(Job{}))
	p.Stop()
	assert.NoError(t, <-seen)
}
