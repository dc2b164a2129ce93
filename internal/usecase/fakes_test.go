package usecase

import (
	"bytes"
	"context"
	"sync"

	"moviestream/internal/domain"
	"moviestream/internal/domain/ports"
)

type fakeEngine struct {
	mu      sync.Mutex
	openErr error
	handle  *fakeHandle
	opened  []string
}

func (e *fakeEngine) Open(ctx context.Context, magnet, dataDir string) (ports.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, dataDir)
	if e.openErr != nil {
		return nil, e.openErr
	}
	return e.handle, nil
}

type fakeHandle struct {
	mu        sync.Mutex
	files     []domain.FileEntry
	fileBytes []int64
	stats     domain.TransferStats
	complete  bool
	closed    bool
	data      []byte
}

func (h *fakeHandle) AwaitMetadata(ctx context.Context) error { return nil }

func (h *fakeHandle) Files() []domain.FileEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.FileEntry(nil), h.files...)
}

func (h *fakeHandle) FileBytesCompleted(index int) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.fileBytes) {
		return 0
	}
	return h.fileBytes[index]
}

func (h *fakeHandle) Stats() domain.TransferStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *fakeHandle) Complete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.complete
}

func (h *fakeHandle) NewReader(index int) (ports.StreamReader, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.files) {
		return nil, domain.ErrNotFound
	}
	return &fakeReader{Reader: bytes.NewReader(h.data)}, nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

type fakeReader struct {
	*bytes.Reader
	closed    bool
	readahead int64
}

func (r *fakeReader) Close() error                  { r.closed = true; return nil }
func (r *fakeReader) SetContext(ctx context.Context) {}
func (r *fakeReader) SetReadahead(n int64)           { r.readahead = n }
