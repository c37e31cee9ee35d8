package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates and configures a new zerolog logger
func New(logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "owatch").
		Logger()

	// Human-readable output in development
	if os.Getenv("APP_ENV") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	}

	return logger
}

// WithProfile adds a profile ID to logger context
func WithProfile(logger zerolog.Logger, profileID string) zerolog.Logger {
	return logger.With().Str("profile_id", profileID).Logger()
}

// WithWallet adds a wallet address to logger context
func WithWallet(logger zerolog.Logger, wallet string) zerolog.Logger {
	return logger.With().Str("wallet", wallet).Logger()
}

// WithVideo adds a video ID to logger context
func WithVideo(logger zerolog.Logger, videoID uint) zerolog.Logger {
	return logger.With().Uint("video_id", videoID).Logger()
}
