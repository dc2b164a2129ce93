package usecase

import (
	"context"
	"log/slog"
	"time"

	"moviestream/internal/services/session"
)

// IdleReaper stops sessions that have gone without streaming activity longer
// than Timeout. Opt-in: a zero Timeout disables it entirely.
type IdleReaper struct {
	Registry *session.Registry
	Stop     StopSession
	Timeout  time.Duration
	Logger   *slog.Logger
}

func (r IdleReaper) Run(ctx context.Context) {
	if r.Timeout <= 0 {
		return
	}
	interval := r.Timeout / 2
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r IdleReaper) reap(ctx context.Context) {
	now := time.Now().UTC()
	for _, sess := range r.Registry.List() {
		if now.Sub(sess.LastActive()) <= r.Timeout {
			continue
		}
		r.Logger.Info("reaping idle session",
			slog.String("sessionId", string(sess.ID())),
			slog.Duration("idleTimeout", r.Timeout),
		)
		if err := r.Stop.Execute(ctx, sess.ID()); err != nil {
			r.Logger.Warn("idle reap failed",
				slog.String("sessionId", string(sess.ID())),
				slog.Any("error", err),
			)
		}
	}
}
