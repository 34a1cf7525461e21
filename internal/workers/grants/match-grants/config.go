// internal/workers/grants/match-grants/config.go
package matchgrants

import (
	"time"

	"spark-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	TopN    int
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout: 30 * time.Second,
		TopN:    cfg.Matching.DefaultTopN,
	}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
