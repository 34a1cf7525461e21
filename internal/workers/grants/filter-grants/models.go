// internal/workers/grants/filter-grants/models.go
package filtergrants

import "spark-workers/internal/grants"

// Browsing views.
const (
	ViewType       = "type"
	ViewNewcomer   = "newcomer"
	ViewSideHustle = "side_hustle"
	ViewYouth      = "youth"
)

type Input struct {
	View      string           `json:"view"`
	GrantType grants.GrantType `json:"grantType,omitempty"` // required for the type view
}

type Output struct {
	View   string         `json:"view"`
	Grants []grants.Grant `json:"grants"`
	Count  int            `json:"count"`
}
