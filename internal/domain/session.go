package domain

import "time"

type SessionID string

type SessionStatus string

const (
	SessionStarting    SessionStatus = "starting"
	SessionDownloading SessionStatus = "downloading"
	SessionReady       SessionStatus = "ready"
	SessionCompleted   SessionStatus = "completed"
	SessionError       SessionStatus = "error"
)

// Terminal reports whether no further transition can leave the status.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionError
}

// CanTransition validates the session state machine:
// starting → downloading → {ready, error}; ready → {completed, error};
// downloading → {completed, error} (small torrents can finish before the
// first streamable tick is observed).
func CanTransition(from, to SessionStatus) bool {
	if from == to {
		return true
	}
	if to == SessionError {
		return !from.Terminal()
	}
	switch from {
	case SessionStarting:
		return to == SessionDownloading
	case SessionDownloading:
		return to == SessionReady || to == SessionCompleted
	case SessionReady:
		return to == SessionCompleted
	default:
		return false
	}
}

// FileEntry describes one file inside a session's torrent. Name, Length and
// Path are fixed at metadata resolution; Streamable flips to true once and
// never reverts.
type FileEntry struct {
	Name       string `json:"name"`
	Length     int64  `json:"length"`
	Path       string `json:"path"`
	Streamable bool   `json:"streamable"`
}

// SessionInfo is the read projection of a session, shaped for polling
// clients.
type SessionInfo struct {
	ID            SessionID     `json:"id"`
	Status        SessionStatus `json:"status"`
	Progress      int           `json:"progress"`
	DownloadSpeed int64         `json:"downloadSpeed"`
	UploadSpeed   int64         `json:"uploadSpeed"`
	Peers         int           `json:"peers"`
	Files         []FileEntry   `json:"files"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// SessionSummary is the compact listing/health projection.
type SessionSummary struct {
	ID        SessionID     `json:"id"`
	Status    SessionStatus `json:"status"`
	Progress  int           `json:"progress"`
	Peers     int           `json:"peers"`
	FileCount int           `json:"fileCount"`
	CreatedAt time.Time     `json:"createdAt"`
}

// TransferStats is a point-in-time snapshot of engine counters for one
// session. BytesRead/BytesWritten are cumulative; speeds are derived by the
// progress tracker from consecutive samples.
type TransferStats struct {
	DoneBytes    int64
	TotalBytes   int64
	Peers        int
	BytesRead    int64
	BytesWritten int64
}
