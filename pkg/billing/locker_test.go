package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/membership/pkg/billing"
)

func TestMemoryLocker(t *testing.T) {
	t.Parallel()

	t.Run("serializes holders of the same key", func(t *testing.T) {
		t.Parallel()
		locker := billing.NewMemoryLocker()
		ctx := context.Background()

		unlock, err := locker.Lock(ctx, "user_1")
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			unlock2, err := locker.Lock(ctx, "user_1")
			if assert.NoError(t, err) {
				close(acquired)
				unlock2()
			}
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(30 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("lock not acquired after release")
		}
	})

	t.Run("different keys do not block", func(t *testing.T) {
		t.Parallel()
		locker := billing.NewMemoryLocker()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		unlockA, err := locker.Lock(ctx, "a")
		require.NoError(t, err)
		defer unlockA()

		unlockB, err := locker.Lock(ctx, "b")
		require.NoError(t, err)
		unlockB()
	})

	t.Run("gives up when context is done", func(t *testing.T) {
		t.Parallel()
		locker := billing.NewMemoryLocker()

		unlock, err := locker.Lock(context.Background(), "user_1")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, "user_1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unlock is idempotent", func(t *testing.T) {
		t.Parallel()
		locker := billing.NewMemoryLocker()
		ctx := context.Background()

		unlock, err := locker.Lock(ctx, "user_1")
		require.NoError(t, err)
		unlock()
		unlock()

		unlock, err = locker.Lock(ctx, "user_1")
		require.NoError(t, err)
		unlock()
	})
}
