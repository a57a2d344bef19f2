package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereview/core/internal/domain/entities"
)

func TestKeyedLockerSameKeyWaits(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tt001")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(ctx, "tt001")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestKeyedLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewKeyedLocker()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	unlockA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedLockerTimeout(t *testing.T) {
	locker := NewKeyedLocker()

	unlock, err := locker.Lock(context.Background(), "tt001")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "tt001")
	require.ErrorIs(t, err, entities.ErrStorageUnavailable)

	unlock()
	assert.Equal(t, 0, locker.size())
}
