package config

import (
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ConfigValidationError is returned when config validation fails.
type ConfigValidationError struct {
	Errors []ValidationError
}

func (e *ConfigValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "config validation failed"
	}
	return "config validation failed: " + e.Errors[0].Field + ": " + e.Errors[0].Message
}

// pnlFilterNames mirrors tradelog's filter modes. config stays free of domain imports.
var pnlFilterNames = map[string]bool{"ALL": true, "PROFIT": true, "LOSS": true}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateLogSource(&c.LogSource)...)
	errors = append(errors, validatePoller(&c.Poller)...)
	errors = append(errors, validateView(&c.View)...)
	errors = append(errors, validateDashboard(&c.Dashboard)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateLogSource(ls *LogSourceConfig) []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(ls.URL)
	if ls.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "log_source.url",
			Message: "must be an absolute http(s) URL",
		})
	}

	if ls.Timeout < 100*time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "log_source.timeout",
			Message: "must be at least 100ms",
		})
	}

	return errors
}

func validatePoller(p *PollerConfig) []ValidationError {
	var errors []ValidationError

	if p.Interval < 500*time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "poller.interval",
			Message: "must be at least 500ms",
		})
	}

	return errors
}

func validateView(v *ViewConfig) []ValidationError {
	if !pnlFilterNames[strings.ToUpper(v.DefaultPnlFilter)] {
		return []ValidationError{{
			Field:   "view.default_pnl_filter",
			Message: "must be one of ALL, PROFIT, LOSS",
		}}
	}
	return nil
}

func validateDashboard(d *DashboardConfig) []ValidationError {
	if !d.Enabled {
		return nil
	}
	if d.Port < 1 || d.Port > 65535 {
		return []ValidationError{{
			Field:   "dashboard.port",
			Message: "must be between 1 and 65535",
		}}
	}
	return nil
}
