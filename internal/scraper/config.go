package scraper

import "time"

// Config represents the configuration for the menu site client
type Config struct {
	// URL is the daily menu page; filters are POSTed back to it
	URL string

	// Timeout bounds a single page request
	Timeout time.Duration

	// UserAgent is sent with every request when set
	UserAgent string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrInvalidConfig
	}
	return nil
}
