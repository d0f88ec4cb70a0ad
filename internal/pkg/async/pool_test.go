package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicpage/internal/pkg/async"
)

func TestPoolExecute(t *testing.T) {
	pool := async.NewPool(2)
	boom := errors.New("boom")

	results := pool.Execute(context.Background(), []async.Task{
		{Name: "a", Execute: func(ctx context.Context) (any, error) { return 1, nil }},
		{Name: "b", Execute: func(ctx context.Context) (any, error) { return nil, boom }},
		{Name: "c", Execute: func(ctx context.Context) (any, error) { return "three", nil }},
	})

	require.Len(t, results, 3)
	assert.Equal(t, 1, results["a"].Data)
	assert.ErrorIs(t, results["b"].Err, boom)
	assert.Equal(t, "three", results["c"].Data)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := async.NewPool(2)

	var running, peak int32
	tasks := make([]async.Task, 8)
	for i := range tasks {
		tasks[i] = async.Task{
			Name: string(rune('a' + i)),
			Execute: func(ctx context.Context) (any, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			},
		}
	}

	results := pool.Execute(context.Background(), tasks)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolRecoversPanics(t *testing.T) {
	results := async.NewPool(1).Execute(context.Background(), []async.Task{
		{Name: "panics", Execute: func(ctx context.Context) (any, error) { panic("bad") }},
		{Name: "ok", Execute: func(ctx context.Context) (any, error) { return true, nil }},
	})

	assert.Error(t, results["panics"].Err)
	assert.NoError(t, results["ok"].Err)
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := async.NewPool(1).Execute(ctx, []async.Task{
		{Name: "a", Execute: func(ctx context.Context) (any, error) { return nil, ctx.Err() }},
		{Name: "b", Execute: func(ctx context.Context) (any, error) { return nil, ctx.Err() }},
	})

	require.Len(t, results, 2)
	assert.ErrorIs(t, results["a"].Err, context.Canceled)
	assert.ErrorIs(t, results["b"].Err, context.Canceled)
}
