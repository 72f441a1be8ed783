// internal/workers/scoring/score-applicant/config.go
package scoreapplicant

import (
	"time"

	"kredmitra/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig defaults to the AI request budget, since one job makes
// several model calls.
func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 90 * time.Second}
	if cfg != nil {
		if w, ok := cfg.Workers[TaskType]; ok && w.Timeout > 0 {
			c.Timeout = config.GetDuration(w.Timeout)
		}
	}
	return c
}
