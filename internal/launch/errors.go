package launch

import "fmt"

// ConfigurationError reports configuration that makes a launch impossible.
// It is fatal: the caller exits before any process is spawned.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func missing(field string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: "required value is empty"}
}
