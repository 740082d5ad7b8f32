// Package logger builds the zerolog loggers used across the tagger.
// Every component gets its own child logger carrying a component field;
// the level comes from CHUNKER_LOGLEVEL and defaults to info.
package logger

import (
	"github.com/rs/zerolog"
	"os"
	"strings"
)

var levels = map[string]zerolog.Level{
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
	"PANIC": zerolog.PanicLevel,
}

// SetupLogging fixes the field names the log consumers expect. Call it
// once at process start, before any logger is created.
func SetupLogging() {
	zerolog.LevelFieldName = "level_name"
	zerolog.TimestampFieldName = "timestamp"
}

func NewLogger(component string) zerolog.Logger {
	level := zerolog.InfoLevel
	if name, ok := os.LookupEnv("CHUNKER_LOGLEVEL"); ok {
		if parsed, known := levels[strings.ToUpper(name)]; known {
			level = parsed
		}
	}
	return zerolog.New(os.Stderr).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(level)
}
