// internal/grants/scorer.go
package grants

import (
	"fmt"
	"strings"
)

// Points awarded per rule.
const (
	PointsFederal         = 20
	PointsProvincial      = 30
	PointsAllIndustries   = 20
	PointsIndustryMatch   = 30
	PointsRelatedIndustry = 15
	PointsNewcomer        = 10
	PointsSideHustle      = 10
	PointsAgeMet          = 10
	PointsFundingCovers   = 10
	PointsSimpleProcess   = 5

	// SimpleComplexityMax is the highest application complexity still considered simple.
	SimpleComplexityMax = 2
)

// YouthMarker is the substring that flags an age restriction as a youth program.
const YouthMarker = "39"

const (
	ReasonFederal         = "federal program available nationwide"
	ReasonAllIndustries   = "available for all industries"
	ReasonRelatedIndustry = "related industry eligible"
	ReasonNewcomer        = "newcomer eligible"
	ReasonSideHustle      = "part-time entrepreneurs welcome"
	ReasonYouthInfo       = "for entrepreneurs 18-39"
	ReasonFundingCovers   = "funding covers startup costs"
	ReasonSimpleProcess   = "simple application process"
)

// Scorer computes the additive match score for one (grant, idea, profile)
// triple. It holds only read-only configuration and is safe for concurrent use.
type Scorer struct {
	relations RelationTable
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRelationTable substitutes the industry relation table.
func WithRelationTable(t RelationTable) Option {
	return func(s *Scorer) {
		if t != nil {
			s.relations = t
		}
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{relations: DefaultRelationTable()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates the rules in their fixed order. ok is false when the
// province gate disqualifies the grant; the returned value is then zero.
// A nil profile skips the newcomer, side-hustle and age rules.
func (s *Scorer) Score(grant Grant, idea BusinessIdea, profile *UserProfile) (MatchedGrant, bool) {
	score := 0
	reasons := make([]string, 0, 7)

	switch {
	case grant.Province == nil:
		score += PointsFederal
		reasons = append(reasons, ReasonFederal)
	case *grant.Province == idea.Province:
		score += PointsProvincial
		reasons = append(reasons, fmt.Sprintf("available in %s", *grant.Province))
	default:
		return MatchedGrant{}, false
	}

	key := NormalizeIndustry(idea.Industry)
	switch {
	case hasWildcard(grant.Industries):
		score += PointsAllIndustries
		reasons = append(reasons, ReasonAllIndustries)
	case matchesIndustry(key, grant.Industries):
		score += PointsIndustryMatch
		reasons = append(reasons, fmt.Sprintf("supports %s industry", idea.Industry))
	case s.relations.Related(key, grant.Industries):
		score += PointsRelatedIndustry
		reasons = append(reasons, ReasonRelatedIndustry)
	}

	if profile != nil {
		if boolValue(profile.IsNewcomer) && boolValue(grant.NewcomerEligible) {
			score += PointsNewcomer
			reasons = append(reasons, ReasonNewcomer)
		}

		if boolValue(profile.IsSideHustle) && grant.AcceptsSideHustles() {
			score += PointsSideHustle
			reasons = append(reasons, ReasonSideHustle)
		}

		if grant.AgeRestrictions != nil {
			text := *grant.AgeRestrictions
			r, parsed := ParseAgeRange(text)
			switch {
			case parsed && profile.Age != nil && r.Contains(*profile.Age):
				score += PointsAgeMet
				reasons = append(reasons, fmt.Sprintf("age requirement met (%s)", text))
			case profile.Age == nil && strings.Contains(text, YouthMarker):
				// informational only
				reasons = append(reasons, ReasonYouthInfo)
			}
		}
	}

	if grant.FundingMax != nil {
		var costMin int64
		if idea.StartupCostMin != nil {
			costMin = *idea.StartupCostMin
		}
		if *grant.FundingMax >= costMin {
			score += PointsFundingCovers
			reasons = append(reasons, ReasonFundingCovers)
		}
	}

	if grant.ApplicationComplexity != nil && *grant.ApplicationComplexity <= SimpleComplexityMax {
		score += PointsSimpleProcess
		reasons = append(reasons, ReasonSimpleProcess)
	}

	return MatchedGrant{
		Grant:        grant,
		MatchScore:   score,
		MatchReasons: reasons,
	}, true
}
