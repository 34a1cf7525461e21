// internal/workers/grants/search-grants/config.go
package searchgrants

import (
	"time"

	"spark-workers/internal/common/config"
)

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Index:   cfg.Database.Elasticsearch.GrantsIndex,
		Timeout: 10 * time.Second,
	}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
