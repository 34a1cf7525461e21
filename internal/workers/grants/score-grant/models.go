// internal/workers/grants/score-grant/models.go
package scoregrant

import "spark-workers/internal/grants"

type Input struct {
	Grant   grants.Grant        `json:"grant"`
	Idea    grants.BusinessIdea `json:"idea"`
	Profile *grants.UserProfile `json:"profile,omitempty"`
}

// Output explains one scoring pass. Disqualified means the province gate
// removed the grant; Eligible means it would appear in ranked results, which
// also requires the grant to be active.
type Output struct {
	GrantID      string   `json:"grantId"`
	MatchScore   int      `json:"matchScore"`
	MatchReasons []string `json:"matchReasons"`
	Eligible     bool     `json:"eligible"`
	Disqualified bool     `json:"disqualified"`
}
