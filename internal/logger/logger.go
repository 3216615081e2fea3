package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide structured logger. It is usable before Init is called.
var Log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// ParseLevel maps "debug", "info", "warn", "error" onto zerolog levels; anything
// else is info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger writing to w. Pretty selects human-readable console output.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Init replaces the global logger.
func Init(level string, pretty bool) {
	Log = New(os.Stderr, level, pretty)
}

func Debug(msg string, kv ...interface{}) { Log.Debug().Fields(kv).Msg(msg) }
func Info(msg string, kv ...interface{})  { Log.Info().Fields(kv).Msg(msg) }
func Warn(msg string, kv ...interface{})  { Log.Warn().Fields(kv).Msg(msg) }

func Error(msg string, err error, kv ...interface{}) {
	Log.Error().Err(err).Fields(kv).Msg(msg)
}
