package apihttp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"moviestream/internal/domain"
)

func (s *Server) handleStreamVideo(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.openStream == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "stream use case not configured")
		return
	}

	fileName := r.URL.Query().Get("file")

	stream, err := s.openStream.Execute(r.Context(), id, fileName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer stream.Close()

	// The reader blocks until pieces arrive instead of returning early EOFs;
	// a premature EOF here would silently truncate playback.

	w.Header().Set("Content-Type", domain.ContentTypeFor(stream.File.Name))
	w.Header().Set("Accept-Ranges", "bytes")
	// Close the connection after streaming to prevent keep-alive from holding
	// the reader open after the player stops playback.
	w.Header().Set("Connection", "close")

	size := stream.File.Length

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		start, end, err := parseByteRange(rangeHeader, size)
		if errors.Is(err, errInvalidRange) {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid range")
			return
		}
		if errors.Is(err, errRangeNotSatisfiable) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		if _, err := stream.Reader.Seek(start, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to seek stream")
			return
		}
		length := end - start + 1
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
		if _, err := io.CopyN(w, stream.Reader, length); err != nil {
			s.logger.Debug("stream range copy interrupted",
				slog.String("sessionId", string(id)),
				slog.String("file", stream.File.Name),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream.Reader); err != nil {
		s.logger.Debug("stream copy interrupted",
			slog.String("sessionId", string(id)),
			slog.String("file", stream.File.Name),
			slog.String("error", err.Error()),
		)
	}
}
