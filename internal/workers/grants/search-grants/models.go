// internal/workers/grants/search-grants/models.go
package searchgrants

import "spark-workers/internal/grants"

type Input struct {
	Keywords  string           `json:"keywords,omitempty"`
	Province  string           `json:"province,omitempty"`
	GrantType grants.GrantType `json:"grantType,omitempty"`
	From      int              `json:"from,omitempty"`
	Size      int              `json:"size,omitempty"`
}

type Output struct {
	Grants    []grants.Grant `json:"grants"`
	TotalHits int64          `json:"totalHits"`
	Count     int            `json:"count"`
	TookMs    int64          `json:"tookMs"`
}
