package settings_test

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
	"github.com/mixmint/mixmint-downloads/internal/settings"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize(logger.Config{Debug: false})
	os.Exit(m.Run())
}

func intPtr(v int) *int { return &v }

type providerMocks struct {
	store *mocks.MockStore
	clock *mocks.MockClock
}

func setupProvider(t *testing.T, ttl time.Duration) (settings.Provider, *providerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := &providerMocks{
		store: mocks.NewMockStore(ctrl),
		clock: mocks.NewMockClock(ctrl),
	}
	return settings.NewProvider(m.store, m.clock, settings.Defaults(), ttl), m
}

func TestProvider_Get_Defaults(t *testing.T) {
	p, m := setupProvider(t, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{}, nil)
	m.clock.EXPECT().Now().Return(now)

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), s)
}

func TestProvider_Get_StoredOverrides(t *testing.T) {
	p, m := setupProvider(t, time.Minute)

	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{
		settings.KeyTokenTTLSeconds:            "120",
		settings.KeyMaxConcurrentDownloads:     "7",
		settings.KeyDownloadRateLimitPerMinute: "not-a-number",
	}, nil)
	m.clock.EXPECT().Now().Return(time.Now())

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, s.TokenTTL)
	assert.Equal(t, 7, s.MaxConcurrentDownloads)
	assert.Equal(t, settings.DEFAULT_DOWNLOAD_RATE_LIMIT_PER_MINUTE, s.DownloadRateLimitPerMinute)
}

func TestProvider_Get_Cached(t *testing.T) {
	p, m := setupProvider(t, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	gomock.InOrder(
		m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{settings.KeyMaxConcurrentDownloads: "5"}, nil),
		m.clock.EXPECT().Now().Return(now),
		m.clock.EXPECT().Since(now).Return(10*time.Second),
		// Stale after the ttl
		m.clock.EXPECT().Since(now).Return(2*time.Minute),
		m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{settings.KeyMaxConcurrentDownloads: "6"}, nil),
		m.clock.EXPECT().Now().Return(now.Add(2*time.Minute)),
	)

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, s.MaxConcurrentDownloads)

	s, err = p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, s.MaxConcurrentDownloads)

	s, err = p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, s.MaxConcurrentDownloads)
}

func TestProvider_Get_StoreError(t *testing.T) {
	p, m := setupProvider(t, time.Minute)

	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(nil, errors.New("db down"))

	_, err := p.Get(context.Background())
	assert.Error(t, err)
}

func TestProvider_Update(t *testing.T) {
	p, m := setupProvider(t, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Prime the cache
	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{}, nil)
	m.clock.EXPECT().Now().Return(now)
	_, err := p.Get(context.Background())
	require.NoError(t, err)

	m.store.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn func(store.Store) error) error {
		return fn(m.store)
	})
	m.store.EXPECT().SetKeyValue(gomock.Any(), settings.KeyTokenTTLSeconds, "90").Return(nil)
	m.store.EXPECT().SetKeyValue(gomock.Any(), settings.KeyDownloadRateLimitPerMinute, "100").Return(nil)

	err = p.Update(context.Background(), settings.Update{
		TokenTTLSeconds:            intPtr(90),
		DownloadRateLimitPerMinute: intPtr(100),
	})
	require.NoError(t, err)

	// The cache was invalidated, so the next Get reloads without consulting Since
	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{
		settings.KeyTokenTTLSeconds:            "90",
		settings.KeyDownloadRateLimitPerMinute: "100",
	}, nil)
	m.clock.EXPECT().Now().Return(now)

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, s.TokenTTL)
	assert.Equal(t, 100, s.DownloadRateLimitPerMinute)
}

func TestProvider_InvalidateDuringLoad(t *testing.T) {
	p, m := setupProvider(t, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	loading := make(chan struct{})
	release := make(chan struct{})
	loads := 0
	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).DoAndReturn(func(context.Context, string) (map[string]string, error) {
		loads++
		if loads == 1 {
			// Read the old row, then stall until the update has committed
			close(loading)
			<-release
			return map[string]string{settings.KeyMaxConcurrentDownloads: "3"}, nil
		}
		return map[string]string{settings.KeyMaxConcurrentDownloads: "7"}, nil
	}).Times(2)
	m.store.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn func(store.Store) error) error {
		return fn(m.store)
	})
	m.store.EXPECT().SetKeyValue(gomock.Any(), settings.KeyMaxConcurrentDownloads, "7").Return(nil)
	// Only the second load is cached
	m.clock.EXPECT().Now().Return(now).Times(1)

	type result struct {
		s   settings.Settings
		err error
	}
	first := make(chan result, 1)
	go func() {
		s, err := p.Get(context.Background())
		first <- result{s, err}
	}()

	<-loading
	require.NoError(t, p.Update(context.Background(), settings.Update{MaxConcurrentDownloads: intPtr(7)}))
	close(release)

	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, 3, r.s.MaxConcurrentDownloads)

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, s.MaxConcurrentDownloads)
}

func TestProvider_Get_ClampsTokenTTL(t *testing.T) {
	p, m := setupProvider(t, time.Minute)

	m.store.EXPECT().GetAllKeyValuesByPrefix(gomock.Any(), settings.KEY_PREFIX).Return(map[string]string{
		settings.KeyTokenTTLSeconds: "3600",
	}, nil)
	m.clock.EXPECT().Now().Return(time.Now())

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.TokenTTL)
}

func TestProvider_Update_StoreError(t *testing.T) {
	p, m := setupProvider(t, time.Minute)

	m.store.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn func(store.Store) error) error {
		return fn(m.store)
	})
	m.store.EXPECT().SetKeyValue(gomock.Any(), settings.KeyMaxConcurrentDownloads, "4").Return(errors.New("db down"))

	err := p.Update(context.Background(), settings.Update{MaxConcurrentDownloads: intPtr(4)})
	assert.Error(t, err)
}

func TestUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		update  settings.Update
		wantErr bool
	}{
		{name: "empty update", update: settings.Update{}, wantErr: true},
		{name: "ttl too short", update: settings.Update{TokenTTLSeconds: intPtr(29)}, wantErr: true},
		{name: "ttl beyond five minutes", update: settings.Update{TokenTTLSeconds: intPtr(301)}, wantErr: true},
		{name: "ttl in bounds", update: settings.Update{TokenTTLSeconds: intPtr(300)}},
		{name: "zero concurrency", update: settings.Update{MaxConcurrentDownloads: intPtr(0)}, wantErr: true},
		{name: "concurrency too high", update: settings.Update{MaxConcurrentDownloads: intPtr(101)}, wantErr: true},
		{name: "concurrency in bounds", update: settings.Update{MaxConcurrentDownloads: intPtr(3)}},
		{name: "zero rate limit", update: settings.Update{DownloadRateLimitPerMinute: intPtr(0)}, wantErr: true},
		{name: "rate limit in bounds", update: settings.Update{DownloadRateLimitPerMinute: intPtr(60)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
