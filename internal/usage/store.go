// internal/usage/store.go
package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spark-workers/internal/models"
)

const subscriptionSQL = `
	SELECT tier, status, expires_at
	FROM user_subscriptions
	WHERE user_id = $1`

// SubscriptionStore reads user_subscriptions.
type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Get returns the user's subscription, or nil when the user never subscribed.
func (s *SubscriptionStore) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	var (
		tier, status sql.NullString
		expiresAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, subscriptionSQL, userID).Scan(&tier, &status, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription %s: %w", userID, err)
	}

	sub := &models.Subscription{
		UserID: userID,
		Tier:   tier.String,
		Status: status.String,
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		sub.ExpiresAt = &t
	}
	return sub, nil
}
