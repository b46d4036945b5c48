package smoke

import (
	"fmt"
	"net/url"
	"time"
)

// Defaults used by the CLI.
const (
	DefaultURL     = "http://localhost:3000"
	DefaultRounds  = 20
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the server
	Rounds  int           // How many times every check runs
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every check, not only failures
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	switch {
	case err != nil:
		return fmt.Errorf("%w: url: %w", ErrInvalidConfig, err)
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		return fmt.Errorf("%w: url %q must be absolute http(s)", ErrInvalidConfig, c.BaseURL)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds must be at least 1", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Failure describes one failed check.
type Failure struct {
	Check string
	Round int
	Err   error
}

// Stats holds run statistics.
type Stats struct {
	Checks    int
	Passed    int
	Failed    int
	Failures  []Failure
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
