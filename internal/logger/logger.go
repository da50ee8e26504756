package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the application logger. Production logs JSON at info level;
// every other environment gets a console writer at debug level.
func New(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if environment == "production" {
		return zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Str("service", "parking-service").
			Logger()
	}

	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(writer).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("service", "parking-service").
		Logger()
}
