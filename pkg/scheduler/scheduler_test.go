package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain/rate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingRefresher struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
}

func (r *countingRefresher) Refresh(ctx context.Context) (rate.RefreshResult, error) {
	r.calls.Add(1)
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return rate.RefreshResult{}, r.err
	}
	return rate.RefreshResult{TotalPairsUpdated: 3, LastRefresh: time.Now()}, nil
}

func TestStartRunsImmediately(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, time.Hour, time.Second, discard)

	require.True(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	st := s.Status()
	require.NotNil(t, st.LastRun)
	require.NotNil(t, st.LastResult)
	assert.Equal(t, 3, st.LastResult.TotalPairsUpdated)
}

func TestStartIsIdempotent(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, time.Hour, time.Second, discard)

	assert.True(t, s.Start(context.Background()))
	assert.False(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestRunsRepeatedlyAndSurvivesErrors(t *testing.T) {
	r := &countingRefresher{err: errors.New("store down")}
	s := New(r, 5*time.Millisecond, time.Second, discard)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Equal(t, "store down", s.Status().LastError)
}

func TestStopRightAfterStartIsBoundedAndFinal(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 5*time.Millisecond, 2*time.Second, discard)

	s.Start(context.Background())
	started := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(started), 2*time.Second)

	after := r.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, r.calls.Load())
}

func TestStopDoesNotCancelInFlightRefresh(t *testing.T) {
	r := &countingRefresher{release: make(chan struct{})}
	s := New(r, 5*time.Millisecond, 20*time.Millisecond, discard)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)

	err := s.Stop()
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.False(t, s.IsRunning())

	close(r.release)
	assert.Eventually(t, func() bool { return s.Status().LastRun != nil }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestRestartAfterStop(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, time.Hour, time.Second, discard)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	assert.True(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return r.calls.Load() == 2 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestContextCancelEndsLoop(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, time.Hour, time.Second, discard)
	ctx, cancel := context.WithCancel(context.Background())

	s.Start(ctx)
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, time.Millisecond)
}
