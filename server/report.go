package server

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// initSentry enables failure reporting when a DSN is configured.
func initSentry(dsn string) bool {
	if dsn == "" {
		return false
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		slog.Error("Sentry initialization failed, failures will only be logged", "error", err)
		return false
	}
	slog.Info("Sentry failure reporting enabled")
	return true
}

func (s *Server) reportFailure(jobID uuid.UUID, err error) {
	if !s.sentryEnabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("job_id", jobID.String())
		sentry.CaptureException(err)
	})
}

func flushSentry(enabled bool) {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}
