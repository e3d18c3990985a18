// Package loadcheck drives a running intake server with concurrent inputs
// and verifies that every accepted input was persisted.
package loadcheck

import (
	"errors"
	"time"
)

// Sentinel errors for load checks.
var (
	ErrInvalidConfig = errors.New("invalid load check config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrLostInputs    = errors.New("stored input count mismatch")
)

// Config holds configuration for a load check run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Inputs   int           // Number of inputs to submit
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Category string        // Optional category to query after submission
}

// Validate checks the run parameters.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base URL is required"))
	case c.Inputs <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("inputs must be positive"))
	case c.Workers <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	case c.Timeout <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("timeout must be positive"))
	}
	return nil
}

// Stats holds the outcome of a run.
type Stats struct {
	Submitted   int
	Accepted    int
	Rejected    int
	Failed      int
	StoredDelta int
	Providers   int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
