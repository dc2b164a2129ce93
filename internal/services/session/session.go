package session

import (
	"context"
	"sync"
	"time"

	"moviestream/internal/domain"
	"moviestream/internal/domain/ports"
)

// speedSample holds the previous cumulative counters used to derive
// instantaneous rates between two ticks.
type speedSample struct {
	at           time.Time
	bytesRead    int64
	bytesWritten int64
}

// Session is one live streaming session. All mutable fields are guarded by
// mu; engine-event updates are applied through single methods so readers
// never observe a half-applied tick. The engine handle is owned exclusively
// by the session: streaming requests borrow it through AcquireHandle and the
// refcount keeps Close from destroying it under an in-flight read.
type Session struct {
	id        domain.SessionID
	magnet    string
	createdAt time.Time

	mu            sync.Mutex
	status        domain.SessionStatus
	progress      int
	downloadSpeed int64
	uploadSpeed   int64
	peers         int
	files         []domain.FileEntry
	errMsg        string
	handle        ports.Handle
	closed        bool
	lastSample    speedSample
	lastActive    time.Time

	refs          sync.WaitGroup
	streamCtx     context.Context
	cancelStreams context.CancelFunc
}

func New(id domain.SessionID, magnet string, now time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:            id,
		magnet:        magnet,
		createdAt:     now,
		status:        domain.SessionStarting,
		lastActive:    now,
		streamCtx:     ctx,
		cancelStreams: cancel,
	}
}

func (s *Session) ID() domain.SessionID { return s.id }

func (s *Session) Magnet() string { return s.magnet }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// StreamContext is canceled when the session shuts down; range reads must
// run under it so Close does not wait on abandoned readers forever.
func (s *Session) StreamContext() context.Context { return s.streamCtx }

// AttachHandle hands ownership of the engine handle to the session. Returns
// false if the session was already closed (stop raced bootstrap), in which
// case the caller still owns the handle and must close it.
func (s *Session) AttachHandle(h ports.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.handle = h
	return true
}

// AcquireHandle borrows the engine handle for a streaming read. The release
// func must be called exactly once when the read finishes. Fails with
// ErrNotFound after shutdown and ErrNotReady before bootstrap attached a
// handle.
func (s *Session) AcquireHandle() (ports.Handle, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, domain.ErrNotFound
	}
	if s.handle == nil {
		return nil, nil, domain.ErrNotReady
	}
	s.refs.Add(1)
	return s.handle, func() { s.refs.Done() }, nil
}

// Touch records streaming activity for the idle sweep.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
}

// ApplyMetadata records the resolved file list and moves the session out of
// starting. Called once by the bootstrap goroutine.
func (s *Session) ApplyMetadata(files []domain.FileEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.SessionStarting {
		return
	}
	s.files = files
	s.status = domain.SessionDownloading
}

// ApplyTick is the streamability tracker: invoked on every engine progress
// tick with aggregate counters and per-file downloaded bytes (indexed like
// files). Any file with nonzero downloaded bytes and a video container
// extension becomes streamable; the flag never reverts. The first streamable
// file moves downloading → ready.
func (s *Session) ApplyTick(stats domain.TransferStats, fileBytes []int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status.Terminal() {
		return
	}

	anyStreamable := false
	for i := range s.files {
		if i < len(fileBytes) && fileBytes[i] > 0 && domain.IsVideoFile(s.files[i].Name) {
			s.files[i].Streamable = true
		}
		if s.files[i].Streamable {
			anyStreamable = true
		}
	}

	if stats.TotalBytes > 0 {
		pct := int(stats.DoneBytes * 100 / stats.TotalBytes)
		if pct > 100 {
			pct = 100
		}
		// Progress is monotonic: piece re-verification can briefly report
		// fewer completed bytes than a previous tick.
		if pct > s.progress {
			s.progress = pct
		}
	}
	s.peers = stats.Peers
	s.downloadSpeed, s.uploadSpeed = s.sampleSpeedLocked(stats, now)

	if anyStreamable && s.status == domain.SessionDownloading {
		s.status = domain.SessionReady
	}
}

// MarkCompleted records that the engine finished the whole torrent.
func (s *Session) MarkCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !domain.CanTransition(s.status, domain.SessionCompleted) {
		return
	}
	s.status = domain.SessionCompleted
	s.progress = 100
	s.downloadSpeed = 0
}

// Fail captures an engine fault verbatim. The message is set once; terminal
// sessions are left untouched.
func (s *Session) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = domain.SessionError
	if s.errMsg == "" {
		s.errMsg = msg
	}
}

func (s *Session) sampleSpeedLocked(stats domain.TransferStats, now time.Time) (int64, int64) {
	prev := s.lastSample
	s.lastSample = speedSample{at: now, bytesRead: stats.BytesRead, bytesWritten: stats.BytesWritten}

	if prev.at.IsZero() {
		return 0, 0
	}
	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return s.downloadSpeed, s.uploadSpeed
	}
	deltaRead := stats.BytesRead - prev.bytesRead
	deltaWritten := stats.BytesWritten - prev.bytesWritten
	if deltaRead < 0 {
		deltaRead = 0
	}
	if deltaWritten < 0 {
		deltaWritten = 0
	}
	return int64(float64(deltaRead) / dt), int64(float64(deltaWritten) / dt)
}

// Snapshot returns an atomic copy of the session's public state.
func (s *Session) Snapshot() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make([]domain.FileEntry, len(s.files))
	copy(files, s.files)
	return domain.SessionInfo{
		ID:            s.id,
		Status:        s.status,
		Progress:      s.progress,
		DownloadSpeed: s.downloadSpeed,
		UploadSpeed:   s.uploadSpeed,
		Peers:         s.peers,
		Files:         files,
		Error:         s.errMsg,
		CreatedAt:     s.createdAt,
	}
}

// Summary returns the compact listing projection.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSummary{
		ID:        s.id,
		Status:    s.status,
		Progress:  s.progress,
		Peers:     s.peers,
		FileCount: len(s.files),
		CreatedAt: s.createdAt,
	}
}

// Status returns the current lifecycle status.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Terminal reports whether the session reached a terminal status or was
// closed; the progress tracker loop exits on it.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.status.Terminal()
}

// LastActive returns the time of the most recent streaming acquisition (or
// creation); used by the optional idle sweep.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close shuts the session down: new handle acquisitions fail immediately,
// in-flight reads are canceled and drained, then the engine handle is
// destroyed. It does not return until the engine released the session's
// on-disk directory, so the caller can safely delete it afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	s.cancelStreams()
	s.refs.Wait()

	if h != nil {
		return h.Close()
	}
	return nil
}
