// internal/grants/matcher.go
package grants

import (
	"sort"
	"strings"
)

const (
	// MinMatchScore is the inclusion threshold for ranked results.
	MinMatchScore = 30
	// DefaultTopN is used by TopForIdea when n is not positive.
	DefaultTopN = 5
)

// Matcher applies a Scorer across a catalog and offers the browsing views.
// Catalogs are never modified.
type Matcher struct {
	scorer   *Scorer
	minScore int
	topN     int
}

type MatcherOption func(*Matcher)

// WithMinScore overrides the inclusion threshold.
func WithMinScore(min int) MatcherOption {
	return func(m *Matcher) {
		m.minScore = min
	}
}

// WithDefaultTopN overrides the TopForIdea default.
func WithDefaultTopN(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.topN = n
		}
	}
}

func NewMatcher(scorer *Scorer, opts ...MatcherOption) *Matcher {
	if scorer == nil {
		scorer = NewScorer()
	}
	m := &Matcher{
		scorer:   scorer,
		minScore: MinMatchScore,
		topN:     DefaultTopN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Scorer returns the underlying scorer.
func (m *Matcher) Scorer() *Scorer {
	return m.scorer
}

// Included reports whether a scored grant passes the inclusion gate.
func (m *Matcher) Included(mg MatchedGrant) bool {
	return mg.MatchScore >= m.minScore && len(mg.MatchReasons) > 0
}

// Rank scores every active grant, keeps those passing the gate and orders
// them by score, highest first. Ties keep catalog order.
func (m *Matcher) Rank(catalog []Grant, idea BusinessIdea, profile *UserProfile) []MatchedGrant {
	out := make([]MatchedGrant, 0, len(catalog))
	for _, g := range catalog {
		if !g.Active {
			continue
		}
		mg, ok := m.scorer.Score(g, idea, profile)
		if !ok || !m.Included(mg) {
			continue
		}
		out = append(out, mg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})
	return out
}

// TopForIdea returns the first n ranked grants.
func (m *Matcher) TopForIdea(catalog []Grant, idea BusinessIdea, profile *UserProfile, n int) []MatchedGrant {
	if n <= 0 {
		n = m.topN
	}
	ranked := m.Rank(catalog, idea, profile)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ByType filters the catalog by program type without scoring.
func (m *Matcher) ByType(catalog []Grant, t GrantType) []Grant {
	return filter(catalog, func(g Grant) bool { return g.GrantType == t })
}

// NewcomerGrants returns grants flagged newcomer-eligible.
func (m *Matcher) NewcomerGrants(catalog []Grant) []Grant {
	return filter(catalog, func(g Grant) bool { return boolValue(g.NewcomerEligible) })
}

// SideHustleGrants returns grants that do not explicitly exclude part-time founders.
func (m *Matcher) SideHustleGrants(catalog []Grant) []Grant {
	return filter(catalog, Grant.AcceptsSideHustles)
}

// YouthGrants is a heuristic: the age text mentions 39 or the name mentions youth.
func (m *Matcher) YouthGrants(catalog []Grant) []Grant {
	return filter(catalog, func(g Grant) bool {
		if g.AgeRestrictions != nil && strings.Contains(*g.AgeRestrictions, YouthMarker) {
			return true
		}
		return strings.Contains(strings.ToLower(g.Name), "youth")
	})
}

func filter(catalog []Grant, keep func(Grant) bool) []Grant {
	out := make([]Grant, 0)
	for _, g := range catalog {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
