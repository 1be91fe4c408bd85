// internal/workers/application/notify-beneficiary/config.go
package notifybeneficiary

import (
	"time"

	"assistance-workflow/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

// LoadConfig derives the handler settings from the worker section of the
// configuration file.
func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := time.Duration(wc.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Enabled: wc.Enabled,
		Timeout: timeout,
	}
}
