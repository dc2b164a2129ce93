package usecase

import (
	"context"
	"errors"
	"time"

	"moviestream/internal/domain"
	"moviestream/internal/domain/ports"
	"moviestream/internal/services/session"
)

// streamReadahead is how far ahead of the current read position the engine
// prefetches pieces. Large enough to absorb player buffering bursts without
// pulling the whole file.
const streamReadahead int64 = 8 << 20

// Stream is an open read path into a session's file. Close releases the
// reader and the session's handle refcount; it must be called exactly once.
type Stream struct {
	Reader ports.StreamReader
	File   domain.FileEntry
	Close  func()
}

// OpenStream resolves a session file to a seekable reader. File selection
// follows the player contract: an explicit file name must match exactly;
// without one the best streamable video file wins, browser-playable
// containers first.
type OpenStream struct {
	Registry *session.Registry
	Now      func() time.Time
}

func (uc OpenStream) Execute(ctx context.Context, id domain.SessionID, fileName string) (Stream, error) {
	sess, ok := uc.Registry.Get(id)
	if !ok {
		return Stream{}, domain.ErrNotFound
	}

	info := sess.Snapshot()
	if info.Status == domain.SessionError {
		return Stream{}, wrapEngine(errors.New(info.Error))
	}
	// Sessions still starting or downloading surface retry-later, not
	// not-found, even while the file list is empty.
	if info.Status != domain.SessionReady && info.Status != domain.SessionCompleted {
		return Stream{}, &domain.NotReadyError{Status: info.Status}
	}

	index, err := selectFile(info.Files, fileName)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			return Stream{}, &domain.NotReadyError{Status: info.Status}
		}
		return Stream{}, err
	}
	file := info.Files[index]
	if !domain.BrowserPlayable(file.Name) {
		return Stream{}, domain.ErrUnsupportedMedia
	}
	if !file.Streamable {
		return Stream{}, &domain.NotReadyError{Status: info.Status}
	}

	handle, release, err := sess.AcquireHandle()
	if err != nil {
		return Stream{}, err
	}

	reader, err := handle.NewReader(index)
	if err != nil {
		release()
		return Stream{}, wrapEngine(err)
	}

	// The reader context merges the request's with the session's stream
	// context so a stop interrupts blocked piece reads and Close can drain.
	streamCtx, cancel := context.WithCancel(ctx)
	detach := context.AfterFunc(sess.StreamContext(), cancel)
	reader.SetContext(streamCtx)
	reader.SetReadahead(streamReadahead)

	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	sess.Touch(now().UTC())

	return Stream{
		Reader: reader,
		File:   file,
		Close: func() {
			detach()
			cancel()
			_ = reader.Close()
			release()
		},
	}, nil
}

// selectFile picks the file index to stream. With an explicit name only an
// exact match qualifies. Without one, the first streamable browser-playable
// video wins, then any streamable video. No streamable video yet means retry
// later if the torrent has video files at all.
func selectFile(files []domain.FileEntry, fileName string) (int, error) {
	if fileName != "" {
		for i, f := range files {
			if f.Name == fileName {
				return i, nil
			}
		}
		return 0, domain.ErrNotFound
	}

	fallback := -1
	hasVideo := false
	for i, f := range files {
		if !domain.IsVideoFile(f.Name) {
			continue
		}
		hasVideo = true
		if !f.Streamable {
			continue
		}
		if domain.BrowserPlayable(f.Name) {
			return i, nil
		}
		if fallback == -1 {
			fallback = i
		}
	}
	if fallback != -1 {
		return fallback, nil
	}
	if hasVideo {
		return 0, domain.ErrNotReady
	}
	return 0, domain.ErrNotFound
}
