package coordinator

import (
	"fmt"
	"time"
)

// Config holds the resolution policy and housekeeping limits.
type Config struct {
	// Quorum resolves a phase once this many proposals are recorded.
	Quorum int `json:"quorum"`
	// DeadlineMS resolves a phase this long after its first proposal.
	DeadlineMS int `json:"deadline_ms"`
	// RoutePrioritySeconds is the duration requested from traffic control.
	RoutePrioritySeconds int `json:"route_priority_seconds"`
	// RetainClosed bounds how many closed incidents stay queryable in memory.
	RetainClosed int `json:"retain_closed"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Quorum == 0 {
		c.Quorum = 2
	}
	if c.DeadlineMS == 0 {
		c.DeadlineMS = 3000
	}
	if c.RoutePrioritySeconds == 0 {
		c.RoutePrioritySeconds = 300
	}
	if c.RetainClosed == 0 {
		c.RetainClosed = 1000
	}
}

// Validate checks the policy values.
func (c Config) Validate() error {
	if c.Quorum < 1 {
		return fmt.Errorf("quorum must be at least 1")
	}
	if c.DeadlineMS < 0 {
		return fmt.Errorf("deadline_ms must not be negative")
	}
	if c.RoutePrioritySeconds < 0 {
		return fmt.Errorf("route_priority_seconds must not be negative")
	}
	if c.RetainClosed < 0 {
		return fmt.Errorf("retain_closed must not be negative")
	}
	return nil
}

// Deadline returns the resolution deadline.
func (c Config) Deadline() time.Duration { return time.Duration(c.DeadlineMS) * time.Millisecond }

// RoutePriority returns the requested route priority duration.
func (c Config) RoutePriority() time.Duration {
	return time.Duration(c.RoutePrioritySeconds) * time.Second
}
