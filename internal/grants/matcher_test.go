package grants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() []Grant {
	return []Grant{
		{ID: "ontario-food", Name: "Ontario Food Fund", Province: ptr("ON"), Industries: []string{"food_beverage"}, GrantType: GrantTypeGrant, Active: true},
		{ID: "canada-all", Name: "Canada Small Business", Industries: []string{"all"}, GrantType: GrantTypeLoan, Active: true, ApplicationComplexity: ptr(1)},
		{ID: "bc-tech", Name: "BC Tech", Province: ptr("BC"), Industries: []string{"technology"}, GrantType: GrantTypeGrant, Active: true},
		{ID: "federal-other", Name: "Federal Farming", Industries: []string{"agriculture"}, GrantType: GrantTypeTaxCredit, Active: true, SideHustleEligible: ptr(false)},
		{ID: "ontario-retail", Name: "Ontario Retail", Province: ptr("ON"), Industries: []string{"retail"}, GrantType: GrantTypeGrant, Active: true},
		{ID: "retired", Name: "Retired Youth Program", Province: ptr("ON"), Industries: []string{"all"}, GrantType: GrantTypeGrant, Active: false},
		{ID: "youth-age", Name: "Futurpreneur", Industries: []string{"all"}, AgeRestrictions: ptr("18-39"), NewcomerEligible: ptr(true), GrantType: GrantTypeLoan, Active: true},
	}
}

func ids(list []MatchedGrant) []string {
	out := make([]string, 0, len(list))
	for _, mg := range list {
		out = append(out, mg.ID)
	}
	return out
}

func grantIDs(list []Grant) []string {
	out := make([]string, 0, len(list))
	for _, g := range list {
		out = append(out, g.ID)
	}
	return out
}

func TestMatcher_Rank(t *testing.T) {
	m := NewMatcher(nil)
	idea := BusinessIdea{Province: "ON", Industry: "Retail"}

	ranked := m.Rank(sampleCatalog(), idea, nil)

	// ontario-retail 60, ontario-food 45, canada-all 45, youth-age 40.
	// federal-other scores 20 and bc-tech is out of province.
	assert.Equal(t, []string{"ontario-retail", "ontario-food", "canada-all", "youth-age"}, ids(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].MatchScore, ranked[i].MatchScore)
	}
	for _, mg := range ranked {
		assert.GreaterOrEqual(t, mg.MatchScore, MinMatchScore)
		assert.NotEmpty(t, mg.MatchReasons)
		assert.True(t, mg.Active)
	}
}

func TestMatcher_Rank_ProvinceGate(t *testing.T) {
	m := NewMatcher(nil)
	ranked := m.Rank(sampleCatalog(), BusinessIdea{Province: "ON", Industry: "technology"}, nil)

	for _, mg := range ranked {
		if mg.Province != nil {
			assert.Equal(t, "ON", *mg.Province)
		}
	}
	assert.NotContains(t, ids(ranked), "bc-tech")
}

func TestMatcher_Rank_EmptyCatalog(t *testing.T) {
	m := NewMatcher(nil)

	ranked := m.Rank(nil, BusinessIdea{Province: "ON", Industry: "retail"}, nil)

	require.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestMatcher_Rank_DoesNotMutateCatalog(t *testing.T) {
	catalog := sampleCatalog()
	before := sampleCatalog()

	NewMatcher(nil).Rank(catalog, BusinessIdea{Province: "ON", Industry: "retail"}, &UserProfile{IsSideHustle: ptr(true)})

	assert.Equal(t, before, catalog)
}

func TestMatcher_Rank_StableTies(t *testing.T) {
	catalog := []Grant{
		{ID: "first", Industries: []string{"all"}, Active: true},
		{ID: "second", Industries: []string{"all"}, Active: true},
		{ID: "third", Industries: []string{"all"}, Active: true},
	}

	ranked := NewMatcher(nil).Rank(catalog, BusinessIdea{Province: "SK", Industry: "x"}, nil)

	assert.Equal(t, []string{"first", "second", "third"}, ids(ranked))
}

func TestMatcher_WithMinScore(t *testing.T) {
	m := NewMatcher(nil, WithMinScore(20))
	ranked := m.Rank(sampleCatalog(), BusinessIdea{Province: "ON", Industry: "Retail"}, nil)

	assert.Contains(t, ids(ranked), "federal-other")
}

func TestMatcher_TopForIdea(t *testing.T) {
	tests := []struct {
		name     string
		matcher  *Matcher
		n        int
		expected int
	}{
		{"explicit n", NewMatcher(nil), 2, 2},
		{"n larger than result", NewMatcher(nil), 50, 4},
		{"zero uses default", NewMatcher(nil, WithDefaultTopN(3)), 0, 3},
		{"negative uses default", NewMatcher(nil), -1, 4},
	}

	idea := BusinessIdea{Province: "ON", Industry: "Retail"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top := tt.matcher.TopForIdea(sampleCatalog(), idea, nil, tt.n)
			assert.Len(t, top, tt.expected)
		})
	}

	top := NewMatcher(nil).TopForIdea(sampleCatalog(), idea, nil, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "ontario-retail", top[0].ID)
}

func TestMatcher_Filters(t *testing.T) {
	m := NewMatcher(nil)
	catalog := sampleCatalog()

	t.Run("by type", func(t *testing.T) {
		assert.Equal(t, []string{"canada-all", "youth-age"}, grantIDs(m.ByType(catalog, GrantTypeLoan)))
		assert.Equal(t, []string{"federal-other"}, grantIDs(m.ByType(catalog, GrantTypeTaxCredit)))
	})

	t.Run("newcomer", func(t *testing.T) {
		assert.Equal(t, []string{"youth-age"}, grantIDs(m.NewcomerGrants(catalog)))
	})

	t.Run("side hustle excludes only explicit false", func(t *testing.T) {
		got := grantIDs(m.SideHustleGrants(catalog))
		assert.NotContains(t, got, "federal-other")
		assert.Len(t, got, len(catalog)-1)
	})

	t.Run("youth", func(t *testing.T) {
		assert.Equal(t, []string{"retired", "youth-age"}, grantIDs(m.YouthGrants(catalog)))
	})

	t.Run("empty results are non-nil", func(t *testing.T) {
		got := m.ByType(nil, GrantTypeGrant)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestGrantType_Valid(t *testing.T) {
	assert.True(t, GrantTypeGrant.Valid())
	assert.True(t, GrantTypeLoan.Valid())
	assert.True(t, GrantTypeTaxCredit.Valid())
	assert.False(t, GrantType("bursary").Valid())
}
