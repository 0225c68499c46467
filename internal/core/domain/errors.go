package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means a source returned nothing or failed. Recoverable.
	ErrNoData = errors.New("no data")

	// ErrInsufficientData is a series too short to evaluate; it also matches ErrNoData.
	ErrInsufficientData = fmt.Errorf("insufficient data: %w", ErrNoData)

	// ErrInvalidSeries is degenerate input such as a zero baseline. Recoverable.
	ErrInvalidSeries = errors.New("invalid series")

	// ErrConfiguration is a reference to a token or wallet absent from configuration.
	ErrConfiguration = errors.New("configuration error")
)

// ConfigKind names what a ConfigError failed to resolve.
type ConfigKind string

const (
	ConfigKindToken    ConfigKind = "token"
	ConfigKindWallet   ConfigKind = "wallet"
	ConfigKindRegistry ConfigKind = "registry"
)

// ConfigError is returned when an identifier cannot be resolved against the
// registry. It matches ErrConfiguration.
type ConfigError struct {
	Kind       ConfigKind
	ID         string
	Reason     string
	Suggestion string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s %q: %s", e.Kind, e.ID, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Classify returns a short label for an error in the taxonomy.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
