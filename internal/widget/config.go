package widget

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig marks a widget that cannot be started. Only that widget
// is skipped; others keep running.
var ErrInvalidConfig = errors.New("invalid widget config")

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultPulseDuration = 300 * time.Millisecond
)

// Config describes one widget instance.
type Config struct {
	PageKey string
	APIBase string
	Tenant  string

	PollInterval  time.Duration
	PulseDuration time.Duration

	// InitPage creates the server-side page record before the first poll.
	InitPage bool
	// MonotonicLikes keeps the displayed count from moving backwards when a
	// slow poll lands after a like confirmation.
	MonotonicLikes bool
}

// Validate reports missing required fields.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.PageKey) == "" {
		missing = append(missing, "page key")
	}
	if strings.TrimSpace(c.APIBase) == "" {
		missing = append(missing, "api base url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, " and "))
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PulseDuration <= 0 {
		c.PulseDuration = DefaultPulseDuration
	}
	return c
}
