package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// NewSugaredLogger returns the process-wide sugared logger. Verbose mode
// selects zap's development config (console encoding, debug level);
// otherwise the JSON production config is used.
func NewSugaredLogger(verbose bool) (*zap.SugaredLogger, error) {
	newLogger := zap.NewProduction
	if verbose {
		newLogger = zap.NewDevelopment
	}

	l, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l.Sugar(), nil
}
