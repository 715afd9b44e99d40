// Package applog wraps zerolog with the component-scoped child loggers
// fricon's packages share. It is the ambient logging layer every other
// package pulls its logger from; log formatter/sink configuration beyond
// this remains a caller concern, per the core's scope notes.
package applog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger, configured once via Init.
var Logger zerolog.Logger

// Level is a string log-level selector, kept distinct from zerolog.Level so
// callers never need to import zerolog just to configure fricon.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures the global logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init installs the global logger. Safe to call once at process start;
// app.Open calls it with the level and JSON settings from its Config.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// A usable default so packages that log before Init (or in tests) don't
	// panic on a zero-value logger.
	Init(Config{Level: InfoLevel})
}

// WithComponent returns a child logger tagged with a component name, e.g.
// applog.WithComponent("dataset-manager").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithDataset returns a child logger tagged with a dataset id.
func WithDataset(id int64) zerolog.Logger {
	return Logger.With().Int64("dataset_id", id).Logger()
}
