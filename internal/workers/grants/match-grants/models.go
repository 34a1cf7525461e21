// internal/workers/grants/match-grants/models.go
package matchgrants

import "spark-workers/internal/grants"

// Input names the idea either inline or by ID. The profile is optional:
// inline, looked up by userId, or absent.
type Input struct {
	IdeaID  string               `json:"ideaId,omitempty"`
	Idea    *grants.BusinessIdea `json:"idea,omitempty"`
	UserID  string               `json:"userId,omitempty"`
	Profile *grants.UserProfile  `json:"profile,omitempty"`
	TopN    int                  `json:"topN,omitempty"`
}

type Output struct {
	MatchRunID    string                `json:"matchRunId"`
	IdeaID        string                `json:"ideaId,omitempty"`
	MatchedGrants []grants.MatchedGrant `json:"matchedGrants"`
	MatchCount    int                   `json:"matchCount"`
}
