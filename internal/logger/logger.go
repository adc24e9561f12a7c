package logger

import (
	"go-cms-app/internal/config"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines a standard interface for logging.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error, msg string)
	Fatal(err error, msg string)
	With(fields map[string]interface{}) Logger
}

type zerologLogger struct {
	logger zerolog.Logger
}

// New creates a Logger writing to w, or to stdout when w is nil.
// Format "console" gives human readable lines; anything else is JSON.
func New(cfg config.LogConfig, w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	output := w
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stdout, TimeFormat: time.RFC3339}
	}

	level, levelErr := parseLevel(cfg.Level)
	l := &zerologLogger{logger: zerolog.New(output).Level(level).With().Timestamp().Logger()}
	if levelErr != nil {
		l.logger.Warn().Str("level", cfg.Level).Msg("Invalid log level, defaulting to info")
	}
	return l
}

// parseLevel maps a config level to zerolog, defaulting to info.
func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, err
	}
	return level, nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// ForComponent tags every entry of l with the component name.
func ForComponent(l Logger, name string) Logger {
	return l.With(map[string]interface{}{"component": name})
}

func (l *zerologLogger) Debug(msg string) { l.logger.Debug().Msg(msg) }

func (l *zerologLogger) Info(msg string) { l.logger.Info().Msg(msg) }

func (l *zerologLogger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *zerologLogger) Error(err error, msg string) { l.logger.Error().Err(err).Msg(msg) }

// Fatal logs and exits the process.
func (l *zerologLogger) Fatal(err error, msg string) { l.logger.Fatal().Err(err).Msg(msg) }

func (l *zerologLogger) With(fields map[string]interface{}) Logger {
	return &zerologLogger{logger: l.logger.With().Fields(fields).Logger()}
}
