// Package log wires a single process-wide zerolog logger, the only
// structured-logging library the upstream tree actually exercised at a
// real call site (its zap wrappers were constructed but never called).
package log

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/b71729/dcmkit/internal/config"
)

var (
	once sync.Once
	base zerolog.Logger
)

// L returns the process-wide logger, configuring its level from config
// on first use.
func L() zerolog.Logger {
	once.Do(func() {
		level, err := zerolog.ParseLevel(config.Get().LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
	})
	return base
}
