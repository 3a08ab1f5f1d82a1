package lock_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/adapters/lock"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const hash = "abcdefghijklmnopqrstuvwxyz234567"

func newLocker(t *testing.T, dir string) *lock.Locker {
	t.Helper()
	l, err := lock.New(dir)
	require.NoError(t, err)
	l.SetRetryDelay(time.Millisecond)
	return l
}

func TestLocker_AcquireRelease(t *testing.T) {
	l := newLocker(t, t.TempDir())

	held, err := l.Acquire(t.Context(), hash)
	require.NoError(t, err)
	require.NoError(t, held.Release())
	require.NoError(t, held.Release())

	again, err := l.Acquire(t.Context(), hash)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLocker_TimeoutNamesHolder(t *testing.T) {
	dir := t.TempDir()
	first := newLocker(t, dir)
	second := newLocker(t, dir)

	held, err := first.Acquire(t.Context(), hash)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err = second.Acquire(ctx, hash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLockTimeout))

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	assert.Contains(t, zErr.Metadata()["holder"], first.Owner())
	assert.Equal(t, hash, zErr.Metadata()["hash"])
}

func TestLocker_DistinctHashesDoNotContend(t *testing.T) {
	l := newLocker(t, t.TempDir())

	a, err := l.Acquire(t.Context(), hash)
	require.NoError(t, err)
	defer func() { _ = a.Release() }()

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	b, err := l.Acquire(ctx, "other")
	require.NoError(t, err)
	require.NoError(t, b.Release())
}

func TestLocker_MutualExclusion(t *testing.T) {
	dir := t.TempDir()
	var inside, maxInside atomic.Int32

	g, ctx := errgroup.WithContext(t.Context())
	for range 6 {
		l := newLocker(t, dir)
		g.Go(func() error {
			held, err := l.Acquire(ctx, hash)
			if err != nil {
				return err
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			return held.Release()
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestLocker_Cancelled(t *testing.T) {
	l := newLocker(t, t.TempDir())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := l.Acquire(ctx, hash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrLockTimeout))
}
