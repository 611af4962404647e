package wait

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPoll_FirstTryIsImmediate(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Poll(context.Background(), time.Second, time.Hour, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPoll_RetriesUntilDone(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), 2*time.Second, 10*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestPoll_Timeout(t *testing.T) {
	err := Poll(context.Background(), 50*time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	require.True(t, errors.Is(err, ErrTimeout))
}

func TestPoll_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	err := Poll(ctx, 5*time.Second, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestPoll_ConditionErrorStops(t *testing.T) {
	boom := errors.New("boom")
	err := Poll(context.Background(), time.Second, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, boom
	})
	require.Equal(t, boom, err)
}

func TestPoll_ZeroTimeoutSingleTry(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), 0, 10*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.True(t, errors.Is(err, ErrTimeout))
	require.Equal(t, 1, calls)
}

func TestSleep_Interruptible(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.Error(t, Sleep(ctx, time.Hour))
	require.Less(t, time.Since(start), time.Second)
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestPoll_NeverCallsWithExpiredContext(t *testing.T) {
	for i := 0; i < 50; i++ {
		err := Poll(context.Background(), 4*time.Millisecond, 2*time.Millisecond, func(ctx context.Context) (bool, error) {
			require.NoError(t, ctx.Err())
			return false, nil
		})
		require.True(t, errors.Is(err, ErrTimeout))
	}
}
