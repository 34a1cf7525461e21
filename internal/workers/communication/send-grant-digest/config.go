// internal/workers/communication/send-grant-digest/config.go
package sendgrantdigest

import (
	"time"

	"spark-workers/internal/common/config"
)

type Config struct {
	EmailEnabled   bool
	SMSEnabled     bool
	FromEmail      string
	SenderID       string
	DeadlineWindow time.Duration
	DigestSize     int
	Timeout        time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	n := cfg.Notifications
	c := &Config{
		EmailEnabled:   n.Email.Enabled,
		SMSEnabled:     n.SMS.Enabled,
		FromEmail:      n.Email.FromEmail,
		SenderID:       n.SMS.SenderID,
		DeadlineWindow: n.DeadlineWindow(),
		DigestSize:     n.DigestSize,
		Timeout:        30 * time.Second,
	}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
