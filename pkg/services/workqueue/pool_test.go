package workqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPool_Defaults(t *testing.T) {
	assert.Positive(t, NewPool(0, nil).Workers())
	assert.Equal(t, 3, NewPool(3, zap.NewNop()).Workers())
}

func TestProcess_PreservesOrder(t *testing.T) {
	pool := NewPool(4, zap.NewNop())
	items := []int{5, 1, 4, 2, 3}

	results := Process(context.Background(), pool, items, func(_ context.Context, n int) (int, error) {
		// Later items finish first.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	}, nil)

	require.Len(t, results, len(items))
	for i, n := range items {
		require.NoError(t, results[i].Err)
		assert.Equal(t, n*10, results[i].Value)
	}
}

func TestProcess_FailuresDoNotStopBatch(t *testing.T) {
	pool := NewPool(2, zap.NewNop())
	boom := errors.New("boom")

	results := Process(context.Background(), pool, []string{"ok", "fail", "panic", "ok"},
		func(_ context.Context, s string) (string, error) {
			switch s {
			case "fail":
				return "", boom
			case "panic":
				panic("unexpected")
			}
			return s, nil
		}, nil)

	require.Len(t, results, 4)
	assert.Equal(t, "ok", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorContains(t, results[2].Err, "panic: unexpected")
	assert.NoError(t, results[3].Err)
}

func TestProcess_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2, zap.NewNop())
	var running, peak atomic.Int32

	Process(context.Background(), pool, make([]struct{}, 10), func(context.Context, struct{}) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	}, nil)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcess_Progress(t *testing.T) {
	pool := NewPool(3, zap.NewNop())
	var calls []int

	Process(context.Background(), pool, []int{1, 2, 3, 4}, func(_ context.Context, n int) (int, error) {
		return n, nil
	}, func(completed, total int) {
		assert.Equal(t, 4, total)
		calls = append(calls, completed)
	})

	assert.Equal(t, []int{1, 2, 3, 4}, calls)
}

func TestProcess_Cancellation(t *testing.T) {
	pool := NewPool(1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	results := Process(ctx, pool, []int{1, 2, 3, 4, 5}, func(_ context.Context, n int) (int, error) {
		if n == 1 {
			cancel()
		}
		return n, nil
	}, nil)

	require.Len(t, results, 5)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[4].Err, context.Canceled)
}

func TestProcess_Empty(t *testing.T) {
	results := Process(context.Background(), NewPool(1, nil), nil, func(context.Context, int) (int, error) {
		return 0, nil
	}, nil)
	assert.Nil(t, results)
}
