// internal/workers/infrastructure/check-usage-limit/models.go
package checkusagelimit

type Input struct {
	UserID  string `json:"userId"`
	Feature string `json:"feature"`
	// Peek reports the standing without consuming a use.
	Peek bool `json:"peek,omitempty"`
}

type Output struct {
	Allowed   bool   `json:"allowed"`
	Tier      string `json:"tier"`
	Feature   string `json:"feature"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	ResetsAt  string `json:"resetsAt"` // RFC 3339
}
