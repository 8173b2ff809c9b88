package sweeper

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/mocks"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize(logger.Config{Debug: false})
	os.Exit(m.Run())
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type sweeperMocks struct {
	store *mocks.MockStore
	clock *mocks.MockClock
}

func setupSweeper(t *testing.T, cfg *TokenCleanupSweeperConfig) (*tokenCleanupSweeper, *sweeperMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := &sweeperMocks{
		store: mocks.NewMockStore(ctrl),
		clock: mocks.NewMockClock(ctrl),
	}
	m.clock.EXPECT().Now().Return(testNow).AnyTimes()
	m.clock.EXPECT().Since(gomock.Any()).Return(time.Millisecond).AnyTimes()

	s := NewTokenCleanupSweeper(cfg, m.store, m.clock).(*tokenCleanupSweeper)
	return s, m
}

func TestNewTokenCleanupSweeper_Defaults(t *testing.T) {
	s, _ := setupSweeper(t, &TokenCleanupSweeperConfig{})

	assert.Equal(t, 10*time.Minute, s.config.Interval)
	assert.Equal(t, 1000, s.config.BatchSize)
	assert.Equal(t, "token-cleanup-sweeper", s.Name())
}

func TestRunOnce_DeletesUntilShortBatch(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100, GracePeriod: time.Hour})
	cutoff := testNow.Add(-time.Hour)

	gomock.InOrder(
		m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), cutoff, 100).Return(int64(100), nil),
		m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), cutoff, 100).Return(int64(100), nil),
		m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), cutoff, 100).Return(int64(7), nil),
	)

	deleted, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(207), deleted)
}

func TestRunOnce_NothingToDelete(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100})

	m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), testNow, 100).Return(int64(0), nil)

	deleted, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestRunOnce_RetriesTransientError(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100})

	gomock.InOrder(
		m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), gomock.Any(), 100).Return(int64(0), errors.New("connection reset")),
		m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), gomock.Any(), 100).Return(int64(3), nil),
	)

	deleted, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestRunOnce_ContextCanceled(t *testing.T) {
	s, _ := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleted, err := s.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), deleted)
}

func TestStartStop(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100, Interval: time.Minute})

	swept := make(chan struct{}, 1)
	m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), gomock.Any(), 100).DoAndReturn(func(context.Context, time.Time, int) (int64, error) {
		select {
		case swept <- struct{}{}:
		default:
		}
		return 0, nil
	}).MinTimes(1)
	// Never fires, so the loop waits for Stop
	m.clock.EXPECT().After(time.Minute).Return(make(chan time.Time)).AnyTimes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(context.Background())
	}()

	select {
	case <-swept:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not run a cycle")
	}

	// A second Start is rejected while running
	require.Eventually(t, func() bool { return s.isRunning() }, time.Second, 10*time.Millisecond)
	assert.Error(t, s.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, <-errCh)

	// Stopping twice is a no-op
	require.NoError(t, s.Stop(stopCtx))
}

func TestStart_ContextCancel(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100, Interval: time.Minute})

	m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), gomock.Any(), 100).Return(int64(0), nil).AnyTimes()
	m.clock.EXPECT().After(time.Minute).Return(make(chan time.Time)).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx)
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestStart_RestartAfterStop(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100, Interval: time.Minute})

	m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), gomock.Any(), 100).Return(int64(0), nil).AnyTimes()
	m.clock.EXPECT().After(time.Minute).Return(make(chan time.Time)).AnyTimes()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(context.Background())
		}()
		require.Eventually(t, s.isRunning, time.Second, 10*time.Millisecond)

		require.NoError(t, s.Stop(stopCtx))
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d did not stop", i)
		}
		assert.False(t, s.isRunning())
	}
}

func TestStart_AfterContextCanceledRun(t *testing.T) {
	s, m := setupSweeper(t, &TokenCleanupSweeperConfig{BatchSize: 100, Interval: time.Minute})

	m.store.EXPECT().DeleteExpiredTokens(gomock.Any(), gomock.Any(), 100).Return(int64(0), nil).AnyTimes()
	m.clock.EXPECT().After(time.Minute).Return(make(chan time.Time)).AnyTimes()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.NotPanics(t, func() {
		assert.NoError(t, s.Start(canceled))
		assert.NoError(t, s.Start(canceled))
	})

	// Stop after the run ended is a no-op
	assert.NoError(t, s.Stop(context.Background()))
}
