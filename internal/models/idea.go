package models

import "time"

// SavedIdea is a generated business idea the user kept on their dashboard.
type SavedIdea struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Industry        string      `json:"industry"`
	Province        string      `json:"province"`
	StartupCostMin  *int64      `json:"startupCostMin,omitempty"`
	StartupCostMax  *int64      `json:"startupCostMax,omitempty"`
	RevenueEstimate string      `json:"revenueEstimate,omitempty"`
	ViabilityScore  *int        `json:"viabilityScore,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	ActionPlan      *ActionPlan `json:"actionPlan,omitempty"`
}

type ActionPlan struct {
	Items []ActionItem `json:"items"`
}

type ActionItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Phase     string `json:"phase,omitempty"`
	Completed bool   `json:"completed"`
}

// Progress summarises an action plan.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// Progress counts completed items. Percent is rounded down and is 0 for
// an empty or nil plan.
func (p *ActionPlan) Progress() Progress {
	if p == nil || len(p.Items) == 0 {
		return Progress{}
	}
	done := 0
	for _, it := range p.Items {
		if it.Completed {
			done++
		}
	}
	return Progress{
		Completed: done,
		Total:     len(p.Items),
		Percent:   done * 100 / len(p.Items),
	}
}
