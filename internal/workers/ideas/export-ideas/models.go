// internal/workers/ideas/export-ideas/models.go
package exportideas

type Input struct {
	UserID  string   `json:"userId"`
	IdeaIDs []string `json:"ideaIds,omitempty"` // empty exports every saved idea
	Format  string   `json:"format,omitempty"`
}

type Output struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
	IdeaCount   int    `json:"ideaCount"`
}
