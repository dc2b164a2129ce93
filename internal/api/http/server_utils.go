package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"moviestream/internal/domain"
	"moviestream/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// retryLaterResponse is the 202 body returned while a session has nothing
// streamable yet. The client should keep polling status.
type retryLaterResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if errors.Is(err, domain.ErrInvalidMagnet) {
		writeError(w, http.StatusBadRequest, "invalid_request", domain.ErrInvalidMagnet.Error())
		return
	}
	if errors.Is(err, domain.ErrUnsupportedMedia) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "file is not browser-playable, only mp4 and webm are supported")
		return
	}
	if errors.Is(err, domain.ErrNotReady) {
		status := domain.SessionDownloading
		var notReady *domain.NotReadyError
		if errors.As(err, &notReady) {
			status = notReady.Status
		}
		w.Header().Set("Retry-After", "2")
		writeJSON(w, http.StatusAccepted, retryLaterResponse{
			Status:  string(status),
			Message: "no streamable file available yet, retry shortly",
		})
		return
	}
	if errors.Is(err, usecase.ErrSessionLimit) {
		w.Header().Set("Retry-After", "10")
		writeError(w, http.StatusServiceUnavailable, "session_limit", "maximum concurrent sessions reached")
		return
	}
	if errors.Is(err, usecase.ErrEngine) {
		writeError(w, http.StatusBadGateway, "engine_error", err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var (
	errInvalidRange        = errors.New("invalid range")
	errRangeNotSatisfiable = errors.New("range not satisfiable")
)

func parseByteRange(value string, size int64) (int64, int64, error) {
	if size <= 0 {
		return 0, 0, errRangeNotSatisfiable
	}

	value = strings.TrimSpace(value)
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "bytes=") {
		return 0, 0, errInvalidRange
	}

	spec := strings.TrimSpace(value[len("bytes="):])
	if spec == "" || strings.Contains(spec, ",") {
		return 0, 0, errInvalidRange
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) == 1 {
		parts = append(parts, "")
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	if startStr == "" {
		if endStr == "" {
			return 0, 0, errInvalidRange
		}
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix <= 0 {
			return 0, 0, errInvalidRange
		}
		if suffix > size {
			suffix = size
		}
		return size - suffix, size - 1, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, errInvalidRange
	}
	if start >= size {
		return 0, 0, errRangeNotSatisfiable
	}

	if endStr == "" {
		return start, size - 1, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < 0 {
		return 0, 0, errInvalidRange
	}
	if end < start {
		return 0, 0, errInvalidRange
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}
