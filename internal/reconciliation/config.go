package reconciliation

import (
	"time"
)

type Config struct {
	// Interval between sweep runs.
	Interval time.Duration
	// LockTTL bounds how long a crashed runner can block the next one.
	LockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = c.Interval - 30*time.Second
		if c.LockTTL <= 0 {
			c.LockTTL = c.Interval
		}
	}
	return c
}
