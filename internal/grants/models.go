// internal/grants/models.go
package grants

import "time"

type GrantType string

const (
	GrantTypeGrant     GrantType = "grant"
	GrantTypeLoan      GrantType = "loan"
	GrantTypeTaxCredit GrantType = "tax_credit"
)

// Valid reports whether t is one of the known program types.
func (t GrantType) Valid() bool {
	switch t {
	case GrantTypeGrant, GrantTypeLoan, GrantTypeTaxCredit:
		return true
	}
	return false
}

// WildcardIndustry in a grant's industry list makes it available to every industry.
const WildcardIndustry = "all"

// Grant is a funding, loan or tax-credit program. Pointer fields are nullable
// in the catalog and every rule that reads them checks presence first.
type Grant struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Description           string                 `json:"description"`
	Province              *string                `json:"province"` // nil = federal
	Industries            []string               `json:"industries"`
	FundingMin            *int64                 `json:"fundingMin,omitempty"`
	FundingMax            *int64                 `json:"fundingMax,omitempty"`
	Eligibility           string                 `json:"eligibility"`
	Deadline              *time.Time             `json:"deadline,omitempty"`
	URL                   string                 `json:"url"`
	GrantType             GrantType              `json:"grantType"`
	Active                bool                   `json:"active"`
	EligibilityCriteria   map[string]interface{} `json:"eligibilityCriteria,omitempty"`
	AgeRestrictions       *string                `json:"ageRestrictions,omitempty"`
	NewcomerEligible      *bool                  `json:"newcomerEligible,omitempty"`
	ExperienceRequired    *string                `json:"experienceRequired,omitempty"`
	SideHustleEligible    *bool                  `json:"sideHustleEligible,omitempty"` // nil counts as eligible
	ApplicationComplexity *int                   `json:"applicationComplexity,omitempty"`
	ApprovalTime          *string                `json:"approvalTime,omitempty"`
}

// IsFederal reports whether the grant has no province restriction.
func (g Grant) IsFederal() bool {
	return g.Province == nil
}

// AcceptsSideHustles treats an absent flag as eligible; only an explicit false opts out.
func (g Grant) AcceptsSideHustles() bool {
	return g.SideHustleEligible == nil || *g.SideHustleEligible
}

// BusinessIdea is the subset of a generated idea the engine reads.
type BusinessIdea struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	Province       string `json:"province"`
	Industry       string `json:"industry"`
	StartupCostMin *int64 `json:"startupCostMin,omitempty"`
}

// UserProfile is optional as a whole and field by field.
type UserProfile struct {
	IsNewcomer      *bool   `json:"isNewcomer,omitempty"`
	IsSideHustle    *bool   `json:"isSideHustle,omitempty"`
	Age             *int    `json:"age,omitempty"`
	ExperienceLevel *string `json:"experienceLevel,omitempty"`
	Province        *string `json:"province,omitempty"`
}

// MatchedGrant is a grant plus the score and reasons produced by one scoring pass.
// MatchReasons[i] corresponds to the i-th rule that fired.
type MatchedGrant struct {
	Grant
	MatchScore   int      `json:"matchScore"`
	MatchReasons []string `json:"matchReasons"`
}

func boolValue(b *bool) bool {
	return b != nil && *b
}
