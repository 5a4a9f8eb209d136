// Package logging provides structured logging for specgate.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with specgate event helpers.
type Logger struct {
	zlog zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool
	Output     io.Writer
	WithCaller bool
}

func New(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "specgate").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Component returns a sub-logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogLint records a completed document assessment.
func (l *Logger) LogLint(title string, depth string, score int, level string, violations int, duration time.Duration) {
	l.zlog.Info().
		Str("event", "lint").
		Str("title", title).
		Str("depth", depth).
		Int("score", score).
		Str("level", level).
		Int("violations", violations).
		Dur("duration_ms", duration).
		Msg("document assessed")
}

// LogRoute records a routing decision. err is set when the workflow ended in
// the error state.
func (l *Logger) LogRoute(workflowID, status string, ticketID string, err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Warn().Err(err)
	}
	event.
		Str("event", "route").
		Str("workflow_id", workflowID).
		Str("status", status).
		Str("ticket_id", ticketID).
		Msg("workflow routed")
}

func (l *Logger) LogTransition(workflowID, from, to, reason string) {
	l.zlog.Info().
		Str("event", "transition").
		Str("workflow_id", workflowID).
		Str("from", from).
		Str("to", to).
		Str("reason", reason).
		Msg("workflow status changed")
}

func (l *Logger) LogServerStart(addr string, rulesHash string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Str("rules_hash", rulesHash).
		Msg("specgate gateway starting")
}
