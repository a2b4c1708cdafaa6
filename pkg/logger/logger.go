// Package logger builds the service-wide zap logger.
package logger

import (
	"go.uber.org/zap"
)

// New creates a logger appropriate for the given environment: human-readable
// development output for "development", JSON production output otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewNamed creates an environment-appropriate logger named after the service.
func NewNamed(env, service string) (*zap.Logger, error) {
	log, err := New(env)
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}
