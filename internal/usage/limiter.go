// internal/usage/limiter.go
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSubscriptionInvalid = errors.New("SUBSCRIPTION_INVALID")
	ErrUsageCheckFailed    = errors.New("SUBSCRIPTION_CHECK_FAILED")
	ErrUnknownFeature      = errors.New("UNKNOWN_FEATURE")
)

// SubscriptionSource looks up a user's subscription. A nil result with a nil
// error means the user has none.
type SubscriptionSource interface {
	Get(ctx context.Context, userID string) (*models.Subscription, error)
}

// Decision is the outcome of a usage check.
type Decision struct {
	Allowed   bool           `json:"allowed"`
	Feature   models.Feature `json:"feature"`
	Tier      models.Tier    `json:"tier"`
	Used      int64          `json:"used"`
	Limit     int64          `json:"limit"`
	Remaining int64          `json:"remaining"` // -1 when unlimited
	ResetsAt  time.Time      `json:"resetsAt"`
}

// Limiter meters features per user per calendar month (UTC) in Redis.
type Limiter struct {
	subs   SubscriptionSource
	redis  *redis.Client
	limits map[string]map[string]int64
	now    func() time.Time
	logger logger.Logger
}

type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(subs SubscriptionSource, rdb *redis.Client, limits map[string]map[string]int64, log logger.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		subs:   subs,
		redis:  rdb,
		limits: limits,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key is the counter key for a user and feature in the month containing at.
func Key(userID string, feature models.Feature, at time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s", userID, feature, at.UTC().Format("2006-01"))
}

// PeriodEnd is the first instant of the month after at, in UTC.
func PeriodEnd(at time.Time) time.Time {
	at = at.UTC()
	return time.Date(at.Year(), at.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// Tier resolves the effective tier. No subscription, or one that is not
// active, counts as free.
func (l *Limiter) Tier(ctx context.Context, userID string) (models.Tier, error) {
	sub, err := l.subs.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsageCheckFailed, err)
	}
	if sub == nil || !sub.Active(l.now()) {
		return models.TierFree, nil
	}
	tier, ok := models.ParseTier(sub.Tier)
	if !ok {
		return "", fmt.Errorf("%w: unknown tier %q", ErrSubscriptionInvalid, sub.Tier)
	}
	return tier, nil
}

// Limit returns the monthly allowance. Features absent from the table get 0.
func (l *Limiter) Limit(tier models.Tier, feature models.Feature) int64 {
	if features, ok := l.limits[string(tier)]; ok {
		if n, ok := features[string(feature)]; ok {
			return n
		}
	}
	return 0
}

// Consume records one use of feature. When the allowance is spent the
// increment is rolled back and the decision is not allowed. Unlimited
// features are not counted.
func (l *Limiter) Consume(ctx context.Context, userID string, feature models.Feature) (Decision, error) {
	d, err := l.prepare(ctx, userID, feature)
	if err != nil {
		return Decision{}, err
	}
	if d.Limit == models.Unlimited {
		return d, nil
	}

	now := l.now()
	key := Key(userID, feature, now)

	n, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUsageCheckFailed, err)
	}
	if n == 1 {
		if err := l.redis.ExpireAt(ctx, key, d.ResetsAt).Err(); err != nil {
			l.logger.Warn("failed to set usage counter expiry", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	if n > d.Limit {
		if err := l.redis.Decr(ctx, key).Err(); err != nil {
			l.logger.Warn("failed to roll back usage counter", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		metrics.UsageLimitDenied.WithLabelValues(string(feature)).Inc()
		d.Used = n - 1
		d.Remaining = 0
		return d, nil
	}

	d.Allowed = true
	d.Used = n
	d.Remaining = d.Limit - n
	return d, nil
}

// Peek reports the current standing without consuming.
func (l *Limiter) Peek(ctx context.Context, userID string, feature models.Feature) (Decision, error) {
	d, err := l.prepare(ctx, userID, feature)
	if err != nil {
		return Decision{}, err
	}
	if d.Limit == models.Unlimited {
		return d, nil
	}

	used, err := l.redis.Get(ctx, Key(userID, feature, l.now())).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("%w: %v", ErrUsageCheckFailed, err)
	}

	d.Used = used
	d.Allowed = used < d.Limit
	d.Remaining = d.Limit - used
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

func (l *Limiter) prepare(ctx context.Context, userID string, feature models.Feature) (Decision, error) {
	if !feature.Valid() {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
	}
	tier, err := l.Tier(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Feature:  feature,
		Tier:     tier,
		Limit:    l.Limit(tier, feature),
		ResetsAt: PeriodEnd(l.now()),
	}
	if d.Limit == models.Unlimited {
		d.Allowed = true
		d.Remaining = models.Unlimited
	}
	return d, nil
}
