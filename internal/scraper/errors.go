package scraper

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid scraper config")

	// ErrNetworkError is returned when the menu site cannot be reached
	ErrNetworkError = errors.New("network error")

	// ErrUnexpectedStatus is returned for any non-2xx response
	ErrUnexpectedStatus = errors.New("unexpected status code")
)
