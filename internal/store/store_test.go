package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/store/schema"
)

// StoreTestSuite provides the interface for running store tests against different implementations
type StoreTestSuite struct {
	Store Store
	// InitDB should be called before each test to initialize the database
	InitDB func(t *testing.T) Store
	// CleanupDB should be called after each test to clean up the database
	CleanupDB func(t *testing.T)
}

// =============================================================================
// Test Data Builders
// =============================================================================

// seedContentItem inserts a content item owned by djID and returns it
func seedContentItem(t *testing.T, store Store, contentType domain.ContentType, djID string, fanOnly bool) *schema.ContentItem {
	t.Helper()

	s, ok := store.(*pgStore)
	require.True(t, ok, "seed helpers require the postgres store")

	item := &schema.ContentItem{
		ID:          uuid.NewString(),
		ContentType: contentType,
		DJID:        djID,
		Title:       fmt.Sprintf("Test %s", contentType),
		StorageKey:  fmt.Sprintf("%s/%s", djID, uuid.NewString()),
		MediaType:   "audio/mpeg",
		PriceCents:  199,
		IsFanOnly:   fanOnly,
	}
	require.NoError(t, s.db.Create(item).Error)
	return item
}

// seedSubscription inserts a subscription and returns it
func seedSubscription(t *testing.T, store Store, userID, djID string, plan domain.Plan, expiresAt time.Time, trackQuota, zipQuota int) *schema.Subscription {
	t.Helper()

	s, ok := store.(*pgStore)
	require.True(t, ok, "seed helpers require the postgres store")

	sub := &schema.Subscription{
		UserID:         userID,
		DJID:           djID,
		Plan:           plan,
		ExpiresAt:      expiresAt,
		TrackQuota:     trackQuota,
		ZipQuota:       zipQuota,
		FanUploadQuota: 0,
	}
	require.NoError(t, s.db.Create(sub).Error)
	return sub
}

// seedPurchase inserts a purchase row
func seedPurchase(t *testing.T, store Store, userID string, item *schema.ContentItem) {
	t.Helper()

	s, ok := store.(*pgStore)
	require.True(t, ok, "seed helpers require the postgres store")

	require.NoError(t, s.db.Create(&schema.Purchase{
		UserID:      userID,
		ContentType: item.ContentType,
		ContentID:   item.ID,
	}).Error)
}

// reloadSubscription reads the subscription back from the database
func reloadSubscription(t *testing.T, store Store, id uint64) *schema.Subscription {
	t.Helper()

	s, ok := store.(*pgStore)
	require.True(t, ok, "seed helpers require the postgres store")

	var sub schema.Subscription
	require.NoError(t, s.db.First(&sub, id).Error)
	return &sub
}

// buildTestDownloadToken creates a download token input
func buildTestDownloadToken(userID string, item *schema.ContentItem, expiresAt time.Time) CreateDownloadTokenInput {
	ip := "203.0.113.7"
	token, _ := domain.NewDownloadToken(nil)
	return CreateDownloadTokenInput{
		Token:        token,
		UserID:       userID,
		ContentID:    item.ID,
		ContentType:  item.ContentType,
		AccessSource: domain.AccessSourcePurchase,
		ExpiresAt:    expiresAt,
		IPAddress:    &ip,
	}
}

// =============================================================================
// Test: Content
// =============================================================================

func testContentItems(t *testing.T, store Store) {
	ctx := context.Background()
	djID := uuid.NewString()

	t.Run("get content item by type and id", func(t *testing.T) {
		item := seedContentItem(t, store, domain.ContentTypeTrack, djID, false)

		got, err := store.GetContentItem(ctx, domain.ContentTypeTrack, item.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, djID, got.DJID)
		assert.Equal(t, int64(199), got.PriceCents)
	})

	t.Run("content type mismatch returns nil", func(t *testing.T) {
		item := seedContentItem(t, store, domain.ContentTypeTrack, djID, false)

		got, err := store.GetContentItem(ctx, domain.ContentTypeZip, item.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing content item returns nil", func(t *testing.T) {
		got, err := store.GetContentItem(ctx, domain.ContentTypeTrack, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("content version belongs to item", func(t *testing.T) {
		item := seedContentItem(t, store, domain.ContentTypeTrack, djID, false)
		other := seedContentItem(t, store, domain.ContentTypeTrack, djID, false)

		s := store.(*pgStore)
		version := &schema.ContentVersion{
			ID:         uuid.NewString(),
			ContentID:  item.ID,
			Label:      "Extended Mix",
			StorageKey: item.StorageKey + "-extended",
			MediaType:  "audio/flac",
		}
		require.NoError(t, s.db.Create(version).Error)

		got, err := store.GetContentVersion(ctx, item.ID, version.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Extended Mix", got.Label)

		got, err = store.GetContentVersion(ctx, other.ID, version.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update content file", func(t *testing.T) {
		item := seedContentItem(t, store, domain.ContentTypeZip, djID, false)

		updatedAt := time.Date(2030, 6, 1, 9, 30, 0, 0, time.UTC)
		err := store.UpdateContentFile(ctx, item.ID, "new/key.zip", "application/zip", updatedAt)
		require.NoError(t, err)

		got, err := store.GetContentItem(ctx, domain.ContentTypeZip, item.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "new/key.zip", got.StorageKey)
		assert.Equal(t, "application/zip", got.MediaType)
		assert.True(t, got.UpdatedAt.Equal(updatedAt))
	})

	t.Run("update missing content file", func(t *testing.T) {
		err := store.UpdateContentFile(ctx, uuid.NewString(), "k", "application/zip", time.Now())
		assert.True(t, errors.Is(err, domain.ErrContentNotFound))
	})
}

// =============================================================================
// Test: Entitlement
// =============================================================================

func testPurchases(t *testing.T, store Store) {
	ctx := context.Background()
	userID := uuid.NewString()
	item := seedContentItem(t, store, domain.ContentTypeTrack, uuid.NewString(), false)

	has, err := store.HasPurchase(ctx, userID, domain.ContentTypeTrack, item.ID)
	require.NoError(t, err)
	assert.False(t, has)

	seedPurchase(t, store, userID, item)

	has, err = store.HasPurchase(ctx, userID, domain.ContentTypeTrack, item.ID)
	require.NoError(t, err)
	assert.True(t, has)

	// The content type is part of the tuple
	has, err = store.HasPurchase(ctx, userID, domain.ContentTypeZip, item.ID)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = store.HasPurchase(ctx, uuid.NewString(), domain.ContentTypeTrack, item.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func testActiveSubscription(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("active subscription is returned", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		seedSubscription(t, store, userID, djID, domain.PlanPro, now.Add(24*time.Hour), 10, 2)

		sub, err := store.GetActiveSubscription(ctx, userID, djID, now)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, domain.PlanPro, sub.Plan)
		assert.True(t, sub.IsActive(now))
	})

	t.Run("expired subscription is not returned", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		seedSubscription(t, store, userID, djID, domain.PlanPro, now.Add(-time.Minute), 10, 2)

		sub, err := store.GetActiveSubscription(ctx, userID, djID, now)
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("subscription to another dj is not returned", func(t *testing.T) {
		userID := uuid.NewString()
		seedSubscription(t, store, userID, uuid.NewString(), domain.PlanSuper, now.Add(time.Hour), -1, -1)

		sub, err := store.GetActiveSubscription(ctx, userID, uuid.NewString(), now)
		require.NoError(t, err)
		assert.Nil(t, sub)
	})
}

func testIncrementUsage(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("track counter stops at quota", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		sub := seedSubscription(t, store, userID, djID, domain.PlanBasic, now.Add(time.Hour), 2, 0)

		input := IncrementUsageInput{UserID: userID, DJID: djID, Counter: UsageCounterTracks, Now: now}
		for i := 0; i < 2; i++ {
			ok, err := store.IncrementUsage(ctx, input)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := store.IncrementUsage(ctx, input)
		require.NoError(t, err)
		assert.False(t, ok)

		got := reloadSubscription(t, store, sub.ID)
		assert.Equal(t, 2, got.TracksUsed)
		assert.Equal(t, 0, got.ZipUsed)
	})

	t.Run("zero zip quota refuses", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		sub := seedSubscription(t, store, userID, djID, domain.PlanBasic, now.Add(time.Hour), 5, 0)

		ok, err := store.IncrementUsage(ctx, IncrementUsageInput{UserID: userID, DJID: djID, Counter: UsageCounterZip, Now: now})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, reloadSubscription(t, store, sub.ID).ZipUsed)
	})

	t.Run("unlimited quota always increments", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		sub := seedSubscription(t, store, userID, djID, domain.PlanSuper, now.Add(time.Hour), domain.UNLIMITED_QUOTA, domain.UNLIMITED_QUOTA)

		for i := 0; i < 5; i++ {
			ok, err := store.IncrementUsage(ctx, IncrementUsageInput{UserID: userID, DJID: djID, Counter: UsageCounterZip, Now: now})
			require.NoError(t, err)
			assert.True(t, ok)
		}
		assert.Equal(t, 5, reloadSubscription(t, store, sub.ID).ZipUsed)
	})

	t.Run("fan upload counter has no cap", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		sub := seedSubscription(t, store, userID, djID, domain.PlanSuper, now.Add(time.Hour), 0, 0)

		for i := 0; i < 3; i++ {
			ok, err := store.IncrementUsage(ctx, IncrementUsageInput{UserID: userID, DJID: djID, Counter: UsageCounterFanUploads, Now: now})
			require.NoError(t, err)
			assert.True(t, ok)
		}
		assert.Equal(t, 3, reloadSubscription(t, store, sub.ID).FanUploadsUsed)
	})

	t.Run("expired subscription is not incremented", func(t *testing.T) {
		userID, djID := uuid.NewString(), uuid.NewString()
		sub := seedSubscription(t, store, userID, djID, domain.PlanPro, now.Add(-time.Second), 10, 10)

		ok, err := store.IncrementUsage(ctx, IncrementUsageInput{UserID: userID, DJID: djID, Counter: UsageCounterTracks, Now: now})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, reloadSubscription(t, store, sub.ID).TracksUsed)
	})

	t.Run("unknown counter is an error", func(t *testing.T) {
		_, err := store.IncrementUsage(ctx, IncrementUsageInput{UserID: uuid.NewString(), DJID: uuid.NewString(), Counter: "bogus", Now: now})
		assert.Error(t, err)
	})
}

// =============================================================================
// Test: Download tokens
// =============================================================================

func testDownloadTokens(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.NewString()
	item := seedContentItem(t, store, domain.ContentTypeTrack, uuid.NewString(), false)

	t.Run("create and redeem lookup", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now.Add(5*time.Minute))

		created, err := store.CreateDownloadToken(ctx, input)
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		assert.False(t, created.IsUsed)

		got, err := store.GetRedeemableToken(ctx, input.Token, now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, domain.AccessSourcePurchase, got.AccessSource)
		assert.True(t, got.MatchesIP("203.0.113.7"))
		assert.False(t, got.MatchesIP("198.51.100.1"))
	})

	t.Run("expired token is not redeemable", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now.Add(-time.Second))
		_, err := store.CreateDownloadToken(ctx, input)
		require.NoError(t, err)

		got, err := store.GetRedeemableToken(ctx, input.Token, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("token expiring exactly now is not redeemable", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now)
		_, err := store.CreateDownloadToken(ctx, input)
		require.NoError(t, err)

		got, err := store.GetRedeemableToken(ctx, input.Token, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("mark used flips once", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now.Add(5*time.Minute))
		_, err := store.CreateDownloadToken(ctx, input)
		require.NoError(t, err)

		ok, err := store.MarkTokenUsed(ctx, input.Token, now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkTokenUsed(ctx, input.Token, now)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.GetRedeemableToken(ctx, input.Token, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("mark unknown token", func(t *testing.T) {
		ok, err := store.MarkTokenUsed(ctx, "does-not-exist", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate token string is rejected", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now.Add(time.Minute))
		err := store.WithTx(ctx, func(tx Store) error {
			if _, err := tx.CreateDownloadToken(ctx, input); err != nil {
				return err
			}
			_, err := tx.CreateDownloadToken(ctx, input)
			return err
		})
		assert.Error(t, err)
	})
}

func testCountOutstandingTokens(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.NewString()
	item := seedContentItem(t, store, domain.ContentTypeZip, uuid.NewString(), false)

	count, err := store.CountOutstandingTokens(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	live1 := buildTestDownloadToken(userID, item, now.Add(time.Minute))
	live2 := buildTestDownloadToken(userID, item, now.Add(2*time.Minute))
	expired := buildTestDownloadToken(userID, item, now.Add(-time.Minute))
	other := buildTestDownloadToken(uuid.NewString(), item, now.Add(time.Minute))
	for _, in := range []CreateDownloadTokenInput{live1, live2, expired, other} {
		_, err := store.CreateDownloadToken(ctx, in)
		require.NoError(t, err)
	}

	count, err = store.CountOutstandingTokens(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ok, err := store.MarkTokenUsed(ctx, live1.Token, now)
	require.NoError(t, err)
	require.True(t, ok)

	count, err = store.CountOutstandingTokens(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testDeleteExpiredTokens(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.NewString()
	item := seedContentItem(t, store, domain.ContentTypeTrack, uuid.NewString(), false)

	for i := 0; i < 3; i++ {
		_, err := store.CreateDownloadToken(ctx, buildTestDownloadToken(userID, item, now.Add(-time.Duration(i+1)*time.Hour)))
		require.NoError(t, err)
	}
	live := buildTestDownloadToken(userID, item, now.Add(time.Hour))
	_, err := store.CreateDownloadToken(ctx, live)
	require.NoError(t, err)

	deleted, err := store.DeleteExpiredTokens(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = store.DeleteExpiredTokens(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := store.GetRedeemableToken(ctx, live.Token, now)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = store.DeleteExpiredTokens(ctx, now, 0)
	assert.Error(t, err)
}

// =============================================================================
// Test: Transactions and download logs
// =============================================================================

func testWithTx(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.NewString()
	item := seedContentItem(t, store, domain.ContentTypeTrack, uuid.NewString(), false)

	t.Run("rollback discards token flip", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now.Add(time.Minute))
		_, err := store.CreateDownloadToken(ctx, input)
		require.NoError(t, err)

		rollback := errors.New("rollback")
		err = store.WithTx(ctx, func(tx Store) error {
			ok, err := tx.MarkTokenUsed(ctx, input.Token, now)
			require.NoError(t, err)
			require.True(t, ok)
			return rollback
		})
		assert.ErrorIs(t, err, rollback)

		got, err := store.GetRedeemableToken(ctx, input.Token, now)
		require.NoError(t, err)
		assert.NotNil(t, got, "token stays unused after rollback")
	})

	t.Run("commit keeps flip and log", func(t *testing.T) {
		input := buildTestDownloadToken(userID, item, now.Add(time.Minute))
		created, err := store.CreateDownloadToken(ctx, input)
		require.NoError(t, err)

		err = store.WithTx(ctx, func(tx Store) error {
			if err := tx.LockUserDownloads(ctx, userID); err != nil {
				return err
			}
			ok, err := tx.MarkTokenUsed(ctx, input.Token, now)
			if err != nil {
				return err
			}
			require.True(t, ok)
			return tx.CreateDownloadLog(ctx, CreateDownloadLogInput{
				TokenID:      created.ID,
				UserID:       userID,
				ContentID:    item.ID,
				ContentType:  item.ContentType,
				AccessSource: domain.AccessSourcePurchase,
				IPAddress:    "203.0.113.7",
				Metadata:     datatypes.JSON(`{"user_agent":"test"}`),
			})
		})
		require.NoError(t, err)

		got, err := store.GetRedeemableToken(ctx, input.Token, now)
		require.NoError(t, err)
		assert.Nil(t, got)

		var logs []schema.DownloadLog
		require.NoError(t, store.(*pgStore).db.Where("token_id = ?", created.ID).Find(&logs).Error)
		require.Len(t, logs, 1)
		assert.Equal(t, userID, logs[0].UserID)
	})

	t.Run("duplicate download log for token is rejected", func(t *testing.T) {
		input := CreateDownloadLogInput{
			TokenID:      999999,
			UserID:       userID,
			ContentID:    item.ID,
			ContentType:  item.ContentType,
			AccessSource: domain.AccessSourceSubscription,
			IPAddress:    "203.0.113.7",
		}
		err := store.WithTx(ctx, func(tx Store) error {
			if err := tx.CreateDownloadLog(ctx, input); err != nil {
				return err
			}
			return tx.CreateDownloadLog(ctx, input)
		})
		assert.Error(t, err)
	})
}

// =============================================================================
// Test: Key-value settings
// =============================================================================

func testKeyValueStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("set and list by prefix", func(t *testing.T) {
		prefix := "test:kv:prefix"

		require.NoError(t, store.SetKeyValue(ctx, prefix+":key1", "value1"))
		require.NoError(t, store.SetKeyValue(ctx, prefix+":key2", "value2"))
		require.NoError(t, store.SetKeyValue(ctx, "other:key", "value3"))

		kvMap, err := store.GetAllKeyValuesByPrefix(ctx, prefix)
		require.NoError(t, err)
		assert.Len(t, kvMap, 2)
		assert.Equal(t, "value1", kvMap[prefix+":key1"])
		assert.Equal(t, "value2", kvMap[prefix+":key2"])
	})

	t.Run("update existing key", func(t *testing.T) {
		key := "test:update:key"

		require.NoError(t, store.SetKeyValue(ctx, key, "value1"))
		require.NoError(t, store.SetKeyValue(ctx, key, "value2"))

		kvMap, err := store.GetAllKeyValuesByPrefix(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "value2", kvMap[key])
	})

	t.Run("unknown prefix returns empty map", func(t *testing.T) {
		kvMap, err := store.GetAllKeyValuesByPrefix(ctx, "nothing:here")
		require.NoError(t, err)
		assert.Empty(t, kvMap)
	})
}

func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"ContentItems", testContentItems},
		{"Purchases", testPurchases},
		{"ActiveSubscription", testActiveSubscription},
		{"IncrementUsage", testIncrementUsage},
		{"DownloadTokens", testDownloadTokens},
		{"CountOutstandingTokens", testCountOutstandingTokens},
		{"DeleteExpiredTokens", testDeleteExpiredTokens},
		{"WithTx", testWithTx},
		{"KeyValueStore", testKeyValueStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
