package work

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkItem(t *testing.T) {
	item := NewWorkItem("history:sync", "EUNL", nil)
	assert.Equal(t, "history:sync:EUNL", item.ID)
	assert.Equal(t, "history:sync", item.TypeID)
	assert.Equal(t, "EUNL", item.Subject)

	global := NewWorkItem("history:report", "", nil)
	assert.Equal(t, "history:report", global.ID)
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(0, 0, zerolog.Nop())

	assert.Equal(t, DefaultSize(), pool.Size())
	assert.GreaterOrEqual(t, pool.Size(), 1)
	assert.Equal(t, WorkTimeout, pool.timeout)
}

func TestPool_FailureDoesNotAbortSiblings(t *testing.T) {
	pool := NewPool(2, time.Second, zerolog.Nop())

	var ran atomic.Int32
	boom := errors.New("boom")
	items := []*WorkItem{
		NewWorkItem("test", "a", func(ctx context.Context) error { ran.Add(1); return nil }),
		NewWorkItem("test", "b", func(ctx context.Context) error { ran.Add(1); return boom }),
		NewWorkItem("test", "c", func(ctx context.Context) error { ran.Add(1); return nil }),
		NewWorkItem("test", "d", func(ctx context.Context) error { ran.Add(1); panic("kaboom") }),
	}

	summary := pool.Run(context.Background(), items)

	assert.Equal(t, int32(4), ran.Load())
	require.Len(t, summary.Results, 4)
	assert.Equal(t, 2, summary.Succeeded())

	// Results keep submission order.
	assert.Equal(t, "test:a", summary.Results[0].ID)
	assert.True(t, errors.Is(summary.Results[1].Err, boom))
	assert.Contains(t, summary.Results[3].Err.Error(), "kaboom")

	failed := summary.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "b", failed[0].Subject)
	assert.Equal(t, "d", failed[1].Subject)

	err := summary.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "test:d")
}

func TestPool_RespectsLimit(t *testing.T) {
	pool := NewPool(2, time.Second, zerolog.Nop())

	var current, peak atomic.Int32
	items := make([]*WorkItem, 8)
	for i := range items {
		items[i] = NewWorkItem("test", "", func(ctx context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil
		})
	}

	summary := pool.Run(context.Background(), items)

	assert.Equal(t, 8, summary.Succeeded())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_Timeout(t *testing.T) {
	pool := NewPool(1, 20*time.Millisecond, zerolog.Nop())

	items := []*WorkItem{
		NewWorkItem("test", "slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	}

	summary := pool.Run(context.Background(), items)

	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].TimedOut)
	assert.True(t, errors.Is(summary.Results[0].Err, context.DeadlineExceeded))
}

func TestSummary_Empty(t *testing.T) {
	summary := NewPool(1, time.Second, zerolog.Nop()).Run(context.Background(), nil)

	assert.Empty(t, summary.Results)
	assert.NoError(t, summary.Err())
}
