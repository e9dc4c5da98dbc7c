package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBaseURL checks the server address. Both websocket and http schemes
// are accepted; http(s) is mapped to ws(s) when the connection is opened.
func (v *Validator) ValidateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("invalid base URL scheme %q (must be: ws, wss, http, https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL has no host")
	}
	if u.RawQuery != "" {
		return fmt.Errorf("base URL must not carry a query string")
	}

	return nil
}

// ValidatePath checks an endpoint path
func (v *Validator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must start with /", path)
	}
	return nil
}

// ValidateToken checks an access token. Tokens travel in the query string,
// so whitespace is rejected.
func (v *Validator) ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("token must not contain whitespace")
	}
	return nil
}

// ValidateDuration checks that d is positive
func (v *Validator) ValidateDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}

// ValidateLogLevel validates a log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}

	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid log level %s (must be: debug, info, warn, error)", level)
}
