package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "passport/pkg/domain-errors"
)

func TestRecordLocks(t *testing.T) {
	t.Run("second holder waits until release", func(t *testing.T) {
		locks := newRecordLocks()
		release, err := locks.acquire(context.Background(), "item:a", time.Second)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			r, err := locks.acquire(context.Background(), "item:a", time.Second)
			if err == nil {
				r()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(20 * time.Millisecond):
		}
		release()
		<-acquired
	})

	t.Run("times out as unavailable", func(t *testing.T) {
		locks := newRecordLocks()
		release, err := locks.acquire(context.Background(), "item:b", time.Second)
		require.NoError(t, err)
		defer release()

		_, err = locks.acquire(context.Background(), "item:b", 10*time.Millisecond)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("cancelled caller gets timeout code", func(t *testing.T) {
		locks := newRecordLocks()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := locks.acquire(ctx, "item:c", time.Second)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func TestTranslateStoreErr(t *testing.T) {
	assert.NoError(t, translateStoreErr(nil, "item"))
	assert.Equal(t, dErrors.CodeTimeout, dErrors.CodeOf(translateStoreErr(context.Canceled, "item")))
	assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(translateStoreErr(context.DeadlineExceeded, "item")))

	coded := dErrors.New(dErrors.CodeNotPending, "x")
	assert.Same(t, coded, translateStoreErr(coded, "item"))
}
