package main

import (
	"os"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// newLogger returns a console logger tagged with a fresh instance id and
// installs it as gnark's logger, so compile and prove output share one sink.
func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Str("instance", uuid.NewString()).
		Logger()
	logger.Set(l)
	return l, nil
}
