// internal/workers/scoring/build-alternative-profile/config.go
package buildalternativeprofile

import (
	"time"

	"kredmitra/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 15 * time.Second}
	if cfg != nil {
		if w, ok := cfg.Workers[TaskType]; ok && w.Timeout > 0 {
			c.Timeout = config.GetDuration(w.Timeout)
		}
	}
	return c
}
