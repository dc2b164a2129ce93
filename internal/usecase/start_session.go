package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moviestream/internal/domain"
	"moviestream/internal/domain/ports"
	"moviestream/internal/metrics"
	"moviestream/internal/services/session"
)

const (
	// metadataWaitTimeout caps how long a session may sit in starting while
	// the swarm resolves metadata. Zero-peer magnets fail after this.
	metadataWaitTimeout = 10 * time.Minute

	defaultTickInterval = time.Second
)

// StartSession creates a streaming session for a magnet URI. The session id
// is returned immediately; swarm bootstrap, metadata resolution, and progress
// tracking run in a background goroutine owned by the session.
type StartSession struct {
	Engine       ports.Engine
	Registry     *session.Registry
	DataRoot     string
	Logger       *slog.Logger
	TickInterval time.Duration
	MaxSessions  int // 0 = unlimited
	Now          func() time.Time
}

func (uc StartSession) Execute(ctx context.Context, magnet string) (domain.SessionID, error) {
	magnet = strings.TrimSpace(magnet)
	if !strings.HasPrefix(magnet, "magnet:?") {
		return "", domain.ErrInvalidMagnet
	}
	if uc.MaxSessions > 0 && uc.Registry.Len() >= uc.MaxSessions {
		return "", ErrSessionLimit
	}

	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	sess := session.New(id, magnet, now().UTC())
	uc.Registry.Add(sess)
	metrics.SessionsStartedTotal.Inc()

	// Bootstrap detaches from the request context: the session outlives the
	// POST that created it.
	go uc.bootstrap(sess)

	return id, nil
}

func (uc StartSession) bootstrap(sess *session.Session) {
	logger := uc.Logger.With(slog.String("sessionId", string(sess.ID())))
	dir := filepath.Join(uc.DataRoot, string(sess.ID()))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("session dir create failed", slog.Any("error", err))
		sess.Fail(err.Error())
		metrics.SessionsFailedTotal.Inc()
		return
	}

	handle, err := uc.Engine.Open(context.Background(), sess.Magnet(), dir)
	if err != nil {
		logger.Error("engine open failed", slog.Any("error", err))
		sess.Fail(err.Error())
		metrics.SessionsFailedTotal.Inc()
		uc.removeDir(logger, dir)
		return
	}

	if !sess.AttachHandle(handle) {
		// Stop won the race during bootstrap; the handle never reached the
		// session, so teardown is on us.
		if err := handle.Close(); err != nil {
			logger.Warn("orphan handle close failed", slog.Any("error", err))
		}
		uc.removeDir(logger, dir)
		return
	}

	metaCtx, cancel := context.WithTimeout(sess.StreamContext(), metadataWaitTimeout)
	defer cancel()
	if err := handle.AwaitMetadata(metaCtx); err != nil {
		logger.Error("metadata resolution failed", slog.Any("error", err))
		sess.Fail("metadata resolution timed out")
		metrics.SessionsFailedTotal.Inc()
		return
	}

	files := handle.Files()
	sess.ApplyMetadata(files)
	logger.Info("session metadata resolved", slog.Int("files", len(files)))

	uc.track(sess)
}

// track is the progress loop: it polls the engine every tick and feeds the
// session's streamability tracker until the session reaches a terminal
// status or is closed. The handle is borrowed per tick so Close never races
// a poll.
func (uc StartSession) track(sess *session.Session) {
	interval := uc.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if sess.Terminal() {
			return
		}
		handle, release, err := sess.AcquireHandle()
		if err != nil {
			return
		}

		files := sess.Snapshot().Files
		fileBytes := make([]int64, len(files))
		for i := range files {
			fileBytes[i] = handle.FileBytesCompleted(i)
		}
		sess.ApplyTick(handle.Stats(), fileBytes, time.Now().UTC())
		if handle.Complete() {
			sess.MarkCompleted()
		}
		release()
	}
}

func (uc StartSession) removeDir(logger *slog.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("session dir cleanup failed", slog.Any("error", err))
	}
}

func newSessionID() (domain.SessionID, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return domain.SessionID(hex.EncodeToString(buf)), nil
}
