// internal/workers/ideas/export-ideas/config.go
package exportideas

import (
	"time"

	"spark-workers/internal/common/config"
	"spark-workers/internal/export"
)

type Config struct {
	DefaultFormat string
	Timeout       time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		DefaultFormat: export.FormatCSV,
		Timeout:       30 * time.Second,
	}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
