package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidMagnet    = errors.New("invalid magnet link format")
	ErrNotReady         = errors.New("session not ready")
	ErrUnsupportedMedia = errors.New("unsupported media format")
)

// NotReadyError signals a session that exists but cannot stream yet. It
// carries the current lifecycle status so retry responses can echo it.
type NotReadyError struct {
	Status SessionStatus
}

func (e *NotReadyError) Error() string {
	return "session not ready: " + string(e.Status)
}

func (e *NotReadyError) Unwrap() error { return ErrNotReady }
