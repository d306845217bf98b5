package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the process logger.
//   - level: trace, debug, info, warn, error, fatal, panic
//   - format: "json" for production, "pretty" for human-readable dev output
//   - loc: zone log timestamps are written in; nil keeps the host zone
//
// Timestamps follow the school zone so log lines line up with class dates
// and lesson times.
func Setup(level, format string, loc *time.Location) zerolog.Logger {
	if loc != nil {
		zerolog.TimestampFunc = func() time.Time { return time.Now().In(loc) }
	}
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(output(format)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Component returns a child logger tagged with a component name, the way
// workers and jobs identify their lines.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func output(format string) io.Writer {
	if format != "pretty" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05 MST",
	}
}
