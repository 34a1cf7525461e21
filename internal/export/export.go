// Package export renders saved ideas for download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"spark-workers/internal/models"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

var csvHeader = []string{
	"Name", "Industry", "Province", "Startup Cost Min", "Startup Cost Max",
	"Viability Score", "Progress %", "Created",
}

// WriteCSV writes a header row then one row per idea. Missing numbers are
// written as empty cells.
func WriteCSV(w io.Writer, ideas []models.SavedIdea) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, idea := range ideas {
		row := []string{
			idea.Name,
			idea.Industry,
			idea.Province,
			formatInt64(idea.StartupCostMin),
			formatInt64(idea.StartupCostMax),
			formatInt(idea.ViabilityScore),
			strconv.Itoa(idea.ActionPlan.Progress().Percent),
			idea.CreatedAt.UTC().Format(time.DateOnly),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonIdea struct {
	models.SavedIdea
	Progress models.Progress `json:"progress"`
}

// WriteJSON writes the ideas as an indented array, each carrying its
// action-plan progress.
func WriteJSON(w io.Writer, ideas []models.SavedIdea) error {
	out := make([]jsonIdea, 0, len(ideas))
	for _, idea := range ideas {
		out = append(out, jsonIdea{SavedIdea: idea, Progress: idea.ActionPlan.Progress()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Document is a rendered export.
type Document struct {
	Body        []byte
	ContentType string
	Extension   string
}

// Render produces the export in the named format (case-insensitive).
func Render(format string, ideas []models.SavedIdea) (*Document, error) {
	var (
		buf bytes.Buffer
		doc Document
		err error
	)
	switch strings.ToLower(format) {
	case FormatCSV:
		err = WriteCSV(&buf, ideas)
		doc.ContentType, doc.Extension = "text/csv", FormatCSV
	case FormatJSON:
		err = WriteJSON(&buf, ideas)
		doc.ContentType, doc.Extension = "application/json", FormatJSON
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	doc.Body = buf.Bytes()
	return &doc, nil
}

func formatInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
