package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"spark-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIdeas() []models.SavedIdea {
	costMin, costMax := int64(2000), int64(8000)
	score := 72
	return []models.SavedIdea{
		{
			ID:             "idea-1",
			Name:           "Mobile barber, downtown",
			Industry:       "services",
			Province:       "AB",
			StartupCostMin: &costMin,
			StartupCostMax: &costMax,
			ViabilityScore: &score,
			CreatedAt:      time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC),
			ActionPlan: &models.ActionPlan{Items: []models.ActionItem{
				{ID: "a", Title: "Register", Completed: true},
				{ID: "b", Title: "Lease chair"},
				{ID: "c", Title: "Buy clippers"},
			}},
		},
		{
			ID:        "idea-2",
			Name:      "Tutoring",
			Industry:  "education",
			Province:  "NS",
			CreatedAt: time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleIdeas()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"Mobile barber, downtown", "services", "AB", "2000", "8000", "72", "33", "2026-05-01"}, records[1])
	assert.Equal(t, []string{"Tutoring", "education", "NS", "", "", "", "0", "2026-06-02"}, records[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Name,Industry,Province,Startup Cost Min,Startup Cost Max,Viability Score,Progress %,Created\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleIdeas()))

	assert.Contains(t, buf.String(), "\n  {")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "idea-1", decoded[0]["id"])
	assert.Equal(t, map[string]interface{}{"completed": float64(1), "total": float64(3), "percent": float64(33)}, decoded[0]["progress"])
	assert.NotContains(t, decoded[1], "actionPlan")
	assert.Equal(t, float64(0), decoded[1]["progress"].(map[string]interface{})["percent"])
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRender(t *testing.T) {
	tests := []struct {
		format      string
		contentType string
		ext         string
	}{
		{"csv", "text/csv", "csv"},
		{"CSV", "text/csv", "csv"},
		{"json", "application/json", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			doc, err := Render(tt.format, sampleIdeas())
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, doc.ContentType)
			assert.Equal(t, tt.ext, doc.Extension)
			assert.NotEmpty(t, doc.Body)
		})
	}

	_, err := Render("pdf", sampleIdeas())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
