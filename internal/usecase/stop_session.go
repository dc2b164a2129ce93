package usecase

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"moviestream/internal/domain"
	"moviestream/internal/services/session"
)

// StopSession tears a session down: unlink it from the registry, drain and
// close the engine handle, then delete the session's data directory. The
// registry removal decides the winner when stops race, so the whole sequence
// runs at most once per session.
type StopSession struct {
	Registry *session.Registry
	DataRoot string
	Logger   *slog.Logger
}

func (uc StopSession) Execute(ctx context.Context, id domain.SessionID) error {
	sess, ok := uc.Registry.Remove(id)
	if !ok {
		return domain.ErrNotFound
	}

	logger := uc.Logger.With(slog.String("sessionId", string(id)))

	if err := sess.Close(); err != nil {
		// The session is already unlinked, so the stop still succeeds; the
		// engine fault is only worth a log line.
		logger.Warn("engine handle close failed", slog.Any("error", err))
	}

	dir := filepath.Join(uc.DataRoot, string(id))
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("session dir cleanup failed", slog.Any("error", err))
	}

	logger.Info("session stopped")
	return nil
}
