package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"spark-workers/internal/common/config"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

type mockSubscriptions struct {
	getFunc func(ctx context.Context, userID string) (*models.Subscription, error)
}

func (m *mockSubscriptions) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID)
	}
	return nil, nil
}

func subscribed(tier, status string, expiresAt *time.Time) *mockSubscriptions {
	return &mockSubscriptions{getFunc: func(ctx context.Context, userID string) (*models.Subscription, error) {
		return &models.Subscription{UserID: userID, Tier: tier, Status: status, ExpiresAt: expiresAt}, nil
	}}
}

func newMiniLimiter(t *testing.T, subs SubscriptionSource) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	mr.SetTime(fixedNow)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLimiter(subs, rdb, config.DefaultUsageLimits(), logger.NewTestLogger(t), WithClock(func() time.Time { return fixedNow }))
	return l, mr
}

func TestKeyAndPeriodEnd(t *testing.T) {
	assert.Equal(t, "usage:u1:grant_match:2026-10", Key("u1", models.FeatureGrantMatch, fixedNow))
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), PeriodEnd(fixedNow))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), PeriodEnd(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)))

	toronto := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "usage:u1:export:2026-11", Key("u1", models.FeatureExport, time.Date(2026, 10, 31, 22, 0, 0, 0, toronto)))
}

func TestTier(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name    string
		subs    *mockSubscriptions
		want    models.Tier
		wantErr error
	}{
		{"no subscription is free", &mockSubscriptions{}, models.TierFree, nil},
		{"active starter", subscribed("starter", "active", &future), models.TierStarter, nil},
		{"pro without expiry", subscribed("pro", "", nil), models.TierPro, nil},
		{"expired pro falls back to free", subscribed("pro", "active", &past), models.TierFree, nil},
		{"cancelled falls back to free", subscribed("starter", "cancelled", nil), models.TierFree, nil},
		{"unknown tier", subscribed("enterprise", "active", nil), "", ErrSubscriptionInvalid},
		{"lookup failure", &mockSubscriptions{getFunc: func(context.Context, string) (*models.Subscription, error) {
			return nil, errors.New("connection reset")
		}}, "", ErrUsageCheckFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newMiniLimiter(t, tt.subs)
			tier, err := l.Tier(context.Background(), "user-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tier)
		})
	}
}

func TestConsume_CountsUntilLimit(t *testing.T) {
	l, mr := newMiniLimiter(t, &mockSubscriptions{})
	ctx := context.Background()
	key := Key("user-1", models.FeatureGrantMatch, fixedNow)

	for i := int64(1); i <= 5; i++ {
		d, err := l.Consume(ctx, "user-1", models.FeatureGrantMatch)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "use %d", i)
		assert.Equal(t, i, d.Used)
		assert.Equal(t, 5-i, d.Remaining)
		assert.Equal(t, models.TierFree, d.Tier)
	}

	assert.Equal(t, PeriodEnd(fixedNow).Sub(fixedNow), mr.TTL(key))

	d, err := l.Consume(ctx, "user-1", models.FeatureGrantMatch)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(5), d.Used)
	assert.Equal(t, int64(0), d.Remaining)

	// denied attempts do not inflate the counter
	v, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}

func TestConsume_ZeroAllowance(t *testing.T) {
	l, mr := newMiniLimiter(t, &mockSubscriptions{})

	d, err := l.Consume(context.Background(), "user-1", models.FeatureExport)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Used)
	assert.Equal(t, int64(0), d.Limit)

	v, _ := mr.Get(Key("user-1", models.FeatureExport, fixedNow))
	assert.Equal(t, "0", v)
}

func TestConsume_UnlimitedSkipsCounter(t *testing.T) {
	l, mr := newMiniLimiter(t, subscribed("pro", "active", nil))

	d, err := l.Consume(context.Background(), "user-1", models.FeatureIdeaGeneration)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.Unlimited, d.Limit)
	assert.Equal(t, models.Unlimited, d.Remaining)
	assert.False(t, mr.Exists(Key("user-1", models.FeatureIdeaGeneration, fixedNow)))
}

func TestConsume_UnknownFeature(t *testing.T) {
	l, _ := newMiniLimiter(t, &mockSubscriptions{})
	_, err := l.Consume(context.Background(), "user-1", models.Feature("teleport"))
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestConsume_RedisFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewLimiter(&mockSubscriptions{}, rdb, config.DefaultUsageLimits(), logger.NewNoOpLogger(),
		WithClock(func() time.Time { return fixedNow }))

	key := Key("user-1", models.FeatureChatMessage, fixedNow)
	mock.ExpectIncr(key).SetErr(errors.New("i/o timeout"))

	_, err := l.Consume(context.Background(), "user-1", models.FeatureChatMessage)
	assert.ErrorIs(t, err, ErrUsageCheckFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_ExpiryFailureStillAllows(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewLimiter(&mockSubscriptions{}, rdb, config.DefaultUsageLimits(), logger.NewNoOpLogger(),
		WithClock(func() time.Time { return fixedNow }))

	key := Key("user-1", models.FeatureChatMessage, fixedNow)
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpireAt(key, PeriodEnd(fixedNow)).SetErr(errors.New("READONLY"))

	d, err := l.Consume(context.Background(), "user-1", models.FeatureChatMessage)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(9), d.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeek(t *testing.T) {
	l, mr := newMiniLimiter(t, subscribed("starter", "active", nil))
	ctx := context.Background()

	d, err := l.Peek(ctx, "user-1", models.FeatureExport)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(0), d.Used)
	assert.Equal(t, int64(10), d.Remaining)

	require.NoError(t, mr.Set(Key("user-1", models.FeatureExport, fixedNow), "10"))

	d, err = l.Peek(ctx, "user-1", models.FeatureExport)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(10), d.Used)
	assert.Equal(t, int64(0), d.Remaining)

	v, _ := mr.Get(Key("user-1", models.FeatureExport, fixedNow))
	assert.Equal(t, "10", v)
}

func TestPeek_RedisFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewLimiter(&mockSubscriptions{}, rdb, config.DefaultUsageLimits(), logger.NewNoOpLogger(),
		WithClock(func() time.Time { return fixedNow }))

	mock.ExpectGet(Key("user-1", models.FeatureGrantMatch, fixedNow)).SetErr(errors.New("connection refused"))

	_, err := l.Peek(context.Background(), "user-1", models.FeatureGrantMatch)
	assert.ErrorIs(t, err, ErrUsageCheckFailed)
}

func TestLimit_MissingEntries(t *testing.T) {
	l := NewLimiter(&mockSubscriptions{}, nil, map[string]map[string]int64{"free": {"export": 2}}, logger.NewNoOpLogger())
	assert.Equal(t, int64(2), l.Limit(models.TierFree, models.FeatureExport))
	assert.Equal(t, int64(0), l.Limit(models.TierFree, models.FeatureChatMessage))
	assert.Equal(t, int64(0), l.Limit(models.TierPro, models.FeatureExport))
}
