package ports

import (
	"context"

	"moviestream/internal/domain"
)

// Engine creates swarm sessions. Implementations wrap a torrent library;
// internal code never touches engine-native types directly.
type Engine interface {
	// Open joins the swarm for a magnet URI, storing pieces under dataDir.
	// It returns once the underlying client accepted the magnet; metadata
	// resolution happens later via Handle.AwaitMetadata.
	Open(ctx context.Context, magnet, dataDir string) (Handle, error)
}

// Handle is the per-session engine object. It is exclusively owned by its
// session for lifecycle purposes (Close) but may be read concurrently by any
// number of in-flight streams.
type Handle interface {
	// AwaitMetadata blocks until torrent metadata (the file list) is known
	// or the context is done.
	AwaitMetadata(ctx context.Context) error

	// Files returns the torrent's file list. Empty before metadata
	// resolution.
	Files() []domain.FileEntry

	// FileBytesCompleted returns the number of downloaded bytes for the
	// file at the given index.
	FileBytesCompleted(index int) int64

	// Stats returns aggregate transfer counters for the whole torrent.
	Stats() domain.TransferStats

	// Complete reports whether the entire torrent has been downloaded.
	Complete() bool

	// NewReader opens a seekable reader over the file at the given index.
	// Reads block until the covering pieces are available.
	NewReader(index int) (StreamReader, error)

	// Close tears down the session's swarm participation and releases all
	// file descriptors. It must not return before the engine has stopped
	// touching the session's on-disk directory.
	Close() error
}
