// Package log builds the zerolog root logger every component receives.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the root logger. Production emits machine-readable JSON;
// everything else gets the console writer at debug level.
func New(environment string) zerolog.Logger {
	level := zerolog.InfoLevel
	if environment != "production" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if environment == "production" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	return logger.With().
		Timestamp().
		Str("service", "doctrack-api").
		Str("env", environment).
		Logger()
}
