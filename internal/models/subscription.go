package models

import "time"

type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
)

// ParseTier accepts the stored tier string.
func ParseTier(s string) (Tier, bool) {
	switch t := Tier(s); t {
	case TierFree, TierStarter, TierPro:
		return t, true
	}
	return "", false
}

// Feature is a metered product capability.
type Feature string

const (
	FeatureIdeaGeneration Feature = "idea_generation"
	FeatureGrantMatch     Feature = "grant_match"
	FeatureExport         Feature = "export"
	FeatureChatMessage    Feature = "chat_message"
)

func (f Feature) Valid() bool {
	switch f {
	case FeatureIdeaGeneration, FeatureGrantMatch, FeatureExport, FeatureChatMessage:
		return true
	}
	return false
}

// Unlimited as a limit disables counting for a feature.
const Unlimited int64 = -1

// Subscription is a row of user_subscriptions.
type Subscription struct {
	UserID    string     `json:"userId"`
	Tier      string     `json:"tier"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the subscription is usable at now.
func (s Subscription) Active(now time.Time) bool {
	if s.Status != "" && s.Status != "active" && s.Status != "trialing" {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
