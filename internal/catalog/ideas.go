package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"spark-workers/internal/models"

	"github.com/lib/pq"
)

const savedIdeasSQL = `
	SELECT id, user_id, name, description, industry, province,
	       startup_cost_min, startup_cost_max, revenue_estimate,
	       viability_score, created_at, action_plan
	FROM saved_ideas
	WHERE user_id = $1`

// ListSavedIdeas returns a user's saved ideas, newest first. A non-empty ids
// restricts the result to those ideas.
func (r *Repository) ListSavedIdeas(ctx context.Context, userID string, ids []string) ([]models.SavedIdea, error) {
	query := savedIdeasSQL
	args := []interface{}{userID}
	if len(ids) > 0 {
		query += " AND id = ANY($2)"
		args = append(args, pq.Array(ids))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query saved ideas: %w", err)
	}
	defer rows.Close()

	ideas := make([]models.SavedIdea, 0)
	for rows.Next() {
		var (
			idea                 models.SavedIdea
			description, revenue sql.NullString
			costMin, costMax     sql.NullInt64
			viability            sql.NullInt32
			plan                 []byte
		)
		if err := rows.Scan(
			&idea.ID, &idea.UserID, &idea.Name, &description, &idea.Industry, &idea.Province,
			&costMin, &costMax, &revenue,
			&viability, &idea.CreatedAt, &plan,
		); err != nil {
			return nil, fmt.Errorf("scan saved idea: %w", err)
		}

		idea.Description = description.String
		idea.StartupCostMin = nullInt64(costMin)
		idea.StartupCostMax = nullInt64(costMax)
		idea.RevenueEstimate = revenue.String
		if viability.Valid {
			v := int(viability.Int32)
			idea.ViabilityScore = &v
		}
		if len(plan) > 0 {
			var ap models.ActionPlan
			if err := json.Unmarshal(plan, &ap); err != nil {
				return nil, fmt.Errorf("decode action plan for idea %s: %w", idea.ID, err)
			}
			idea.ActionPlan = &ap
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved ideas: %w", err)
	}
	return ideas, nil
}
