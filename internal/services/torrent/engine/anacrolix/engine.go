package anacrolix

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/anacrolix/torrent"
	"golang.org/x/time/rate"

	"moviestream/internal/domain"
	"moviestream/internal/domain/ports"
)

// addMagnetTimeout caps the time we wait for the anacrolix client to accept
// a magnet link. AddMagnet can block on an internal client mutex while the
// client is busy.
const addMagnetTimeout = 10 * time.Second

type Config struct {
	// ListenPort is the swarm listen port. 0 picks a random free port,
	// which is required here because every session runs its own client.
	ListenPort int

	// DownloadRateLimit caps swarm download bandwidth per session in
	// bytes/sec. 0 = unlimited.
	DownloadRateLimit int64

	// UploadRateLimit caps swarm upload bandwidth per session in
	// bytes/sec. 0 = unlimited.
	UploadRateLimit int64

	// DisableSeeding stops the client from uploading completed pieces.
	DisableSeeding bool
}

// Engine implements ports.Engine on github.com/anacrolix/torrent. Each Open
// call builds a dedicated client rooted at the session's data directory, so
// closing a handle tears down every descriptor under that directory and the
// caller can delete it immediately afterwards.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Open(ctx context.Context, magnet, dataDir string) (ports.Handle, error) {
	clientConfig := torrent.NewDefaultClientConfig()
	clientConfig.DataDir = dataDir
	clientConfig.ListenPort = e.cfg.ListenPort
	clientConfig.Seed = !e.cfg.DisableSeeding
	if e.cfg.DownloadRateLimit > 0 {
		clientConfig.DownloadRateLimiter = rate.NewLimiter(rate.Limit(e.cfg.DownloadRateLimit), int(e.cfg.DownloadRateLimit))
	}
	if e.cfg.UploadRateLimit > 0 {
		clientConfig.UploadRateLimiter = rate.NewLimiter(rate.Limit(e.cfg.UploadRateLimit), int(e.cfg.UploadRateLimit))
	}

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	// Run AddMagnet with a timeout so we never block the caller
	// indefinitely if the client wedges on startup.
	type addResult struct {
		t   *torrent.Torrent
		err error
	}
	ch := make(chan addResult, 1)
	go func() {
		t, err := client.AddMagnet(magnet)
		ch <- addResult{t, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			client.Close()
			return nil, res.err
		}
		return &Handle{client: client, torrent: res.t}, nil
	case <-time.After(addMagnetTimeout):
		go func() {
			<-ch
			client.Close()
		}()
		return nil, errors.New("torrent client busy, try again later")
	case <-ctx.Done():
		go func() {
			<-ch
			client.Close()
		}()
		return nil, ctx.Err()
	}
}

// Handle wraps one torrent on its dedicated client.
type Handle struct {
	client  *torrent.Client
	torrent *torrent.Torrent
}

func (h *Handle) AwaitMetadata(ctx context.Context) error {
	select {
	case <-h.torrent.GotInfo():
	case <-ctx.Done():
		return ctx.Err()
	}
	h.torrent.DownloadAll()
	return nil
}

func (h *Handle) Files() []domain.FileEntry {
	return mapFiles(h.torrent)
}

func (h *Handle) FileBytesCompleted(index int) int64 {
	if !torrentInfoReady(h.torrent) {
		return 0
	}
	files := h.torrent.Files()
	if index < 0 || index >= len(files) {
		return 0
	}
	return files[index].BytesCompleted()
}

func (h *Handle) Stats() domain.TransferStats {
	stats := h.torrent.Stats()
	out := domain.TransferStats{
		Peers:        stats.ActivePeers,
		BytesRead:    stats.BytesReadUsefulData.Int64(),
		BytesWritten: stats.BytesWrittenData.Int64(),
	}
	if torrentInfoReady(h.torrent) {
		out.DoneBytes = h.torrent.BytesCompleted()
		out.TotalBytes = h.torrent.Length()
	}
	return out
}

func (h *Handle) Complete() bool {
	if !torrentInfoReady(h.torrent) {
		return false
	}
	length := h.torrent.Length()
	return length > 0 && h.torrent.BytesCompleted() >= length
}

func (h *Handle) NewReader(index int) (ports.StreamReader, error) {
	if !torrentInfoReady(h.torrent) {
		return nil, domain.ErrNotReady
	}
	files := h.torrent.Files()
	if index < 0 || index >= len(files) {
		return nil, domain.ErrNotFound
	}
	return files[index].NewReader(), nil
}

func (h *Handle) Close() error {
	h.torrent.Drop()
	errs := h.client.Close()
	// Return memory to the OS promptly after dropping a session. Without
	// this, freed piece buffers can linger long enough to OOM constrained
	// deployments.
	freeOSMemory()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func freeOSMemory() {
	runtime.GC()
	debug.FreeOSMemory()
}

func mapFiles(t *torrent.Torrent) (mapped []domain.FileEntry) {
	if !torrentInfoReady(t) {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("mapFiles panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
			mapped = nil
		}
	}()

	files := t.Files()
	mapped = make([]domain.FileEntry, 0, len(files))
	for _, f := range files {
		mapped = append(mapped, domain.FileEntry{
			Name:   filepath.Base(f.Path()),
			Length: f.Length(),
			Path:   f.Path(),
		})
	}
	return mapped
}

func torrentInfoReady(t *torrent.Torrent) bool {
	if t == nil {
		return false
	}
	select {
	case <-t.GotInfo():
		return true
	default:
		return false
	}
}
