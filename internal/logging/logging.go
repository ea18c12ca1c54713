// Package logging initializes the ambient logger every long-running
// component logs through. Grounded on
// internal/observability/logging.go's InitLogger: zerolog configured with
// RFC3339Nano timestamps, a file-plus-stdout writer, LOG_LEVEL-driven
// global level, and the standard library logger redirected so nothing
// slips past it uncaptured.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stdout
	if f, err := os.OpenFile("trialgraph.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		w = io.MultiWriter(os.Stdout, f)
	}
	log.Logger = log.Output(w).With().Timestamp().Logger()

	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// Log is the package-wide logger every component logs through.
var Log = &log.Logger

// With returns a logger tagged with run_id, the single identifier §6's
// "metrics & logs" section asks every ingestion-run log line to carry.
func With(runID string) zerolog.Logger {
	return log.Logger.With().Str("run_id", runID).Logger()
}
