package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moviestream/internal/domain"
	"moviestream/internal/usecase"
)

type fakeStartSession struct {
	id  domain.SessionID
	err error
}

func (f *fakeStartSession) Execute(ctx context.Context, magnet string) (domain.SessionID, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeStopSession struct {
	err     error
	stopped []domain.SessionID
}

func (f *fakeStopSession) Execute(ctx context.Context, id domain.SessionID) error {
	if f.err != nil {
		return f.err
	}
	f.stopped = append(f.stopped, id)
	return nil
}

type fakeGetStatus struct {
	info domain.SessionInfo
	err  error
}

func (f *fakeGetStatus) Execute(ctx context.Context, id domain.SessionID) (domain.SessionInfo, error) {
	if f.err != nil {
		return domain.SessionInfo{}, f.err
	}
	return f.info, nil
}

type fakeListSessions struct {
	sessions []domain.SessionSummary
}

func (f *fakeListSessions) Execute(ctx context.Context) []domain.SessionSummary {
	return f.sessions
}

type fakeOpenStream struct {
	data []byte
	file domain.FileEntry
	err  error
}

func (f *fakeOpenStream) Execute(ctx context.Context, id domain.SessionID, fileName string) (usecase.Stream, error) {
	if f.err != nil {
		return usecase.Stream{}, f.err
	}
	return usecase.Stream{
		Reader: &fakeStreamReader{Reader: bytes.NewReader(f.data)},
		File:   f.file,
		Close:  func() {},
	}, nil
}

type fakeStreamReader struct {
	*bytes.Reader
}

func (r *fakeStreamReader) Close() error                   { return nil }
func (r *fakeStreamReader) SetContext(ctx context.Context) {}
func (r *fakeStreamReader) SetReadahead(n int64)           {}

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	srv := NewServer(&fakeStartSession{id: "abc123"}, opts...)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"magnet":"magnet:?xt=urn:btih:deadbeef"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp createSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "abc123" {
		t.Fatalf("sessionId = %q", resp.SessionID)
	}
}

func TestCreateSessionInvalidMagnet(t *testing.T) {
	srv := NewServer(&fakeStartSession{err: domain.ErrInvalidMagnet})
	t.Cleanup(srv.Close)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"magnet":"not-a-magnet"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_request") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCreateSessionAtCapacity(t *testing.T) {
	srv := NewServer(&fakeStartSession{err: usecase.ErrSessionLimit})
	t.Cleanup(srv.Close)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"magnet":"magnet:?xt=urn:btih:deadbeef"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	list := &fakeListSessions{sessions: []domain.SessionSummary{
		{ID: "s1", Status: domain.SessionReady, Progress: 42, CreatedAt: time.Now().UTC()},
	}}
	srv := newTestServer(t, WithListSessions(list))

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp listSessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Sessions[0].ID != "s1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSessionStatus(t *testing.T) {
	status := &fakeGetStatus{info: domain.SessionInfo{
		ID:       "s1",
		Status:   domain.SessionDownloading,
		Progress: 17,
		Files:    []domain.FileEntry{{Name: "movie.mp4", Length: 100, Streamable: true}},
	}}
	srv := newTestServer(t, WithGetStatus(status))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info domain.SessionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Status != domain.SessionDownloading || !info.Files[0].Streamable {
		t.Fatalf("info = %+v", info)
	}
}

func TestSessionStatusNotFound(t *testing.T) {
	srv := newTestServer(t, WithGetStatus(&fakeGetStatus{err: domain.ErrNotFound}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStopSession(t *testing.T) {
	stop := &fakeStopSession{}
	srv := newTestServer(t, WithStopSession(stop))

	req := httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(stop.stopped) != 1 || stop.stopped[0] != "s1" {
		t.Fatalf("stopped = %v", stop.stopped)
	}
}

func TestStopSessionTwiceReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, WithStopSession(&fakeStopSession{err: domain.ErrNotFound}))

	req := httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRateLimitConfigured(t *testing.T) {
	list := &fakeListSessions{}
	srv := newTestServer(t, WithListSessions(list), WithRateLimit(0.5, 1))

	first := httptest.NewRecorder()
	srv.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	srv.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429 with burst 1", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("Retry-After = %q", got)
	}

	// Health stays reachable regardless of the limiter.
	health := httptest.NewRecorder()
	srv.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", health.Code)
	}
}

func TestHealth(t *testing.T) {
	list := &fakeListSessions{sessions: []domain.SessionSummary{{ID: "s1"}, {ID: "s2"}}}
	srv := newTestServer(t, WithListSessions(list), WithMaxSessions(10))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.ActiveSessions != 2 || resp.MaxSessions != 10 {
		t.Fatalf("resp = %+v", resp)
	}
}

func streamTestData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestStreamVideoRange(t *testing.T) {
	data := streamTestData(1000)
	open := &fakeOpenStream{
		data: data,
		file: domain.FileEntry{Name: "movie.mp4", Length: 1000, Streamable: true},
	}
	srv := newTestServer(t, WithOpenStream(open))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	req.Header.Set("Range", "bytes=100-199")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Fatalf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Fatalf("Content-Length = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges = %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, data[100:200]) {
		t.Fatalf("body does not match requested byte window")
	}
}

func TestStreamVideoOpenEndedRange(t *testing.T) {
	data := streamTestData(500)
	open := &fakeOpenStream{
		data: data,
		file: domain.FileEntry{Name: "movie.webm", Length: 500, Streamable: true},
	}
	srv := newTestServer(t, WithOpenStream(open))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	req.Header.Set("Range", "bytes=450-")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 450-499/500" {
		t.Fatalf("Content-Range = %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, data[450:]) {
		t.Fatalf("body mismatch for open-ended range")
	}
}

func TestStreamVideoFullFile(t *testing.T) {
	data := streamTestData(256)
	open := &fakeOpenStream{
		data: data,
		file: domain.FileEntry{Name: "movie.mp4", Length: 256, Streamable: true},
	}
	srv := newTestServer(t, WithOpenStream(open))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "256" {
		t.Fatalf("Content-Length = %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, data) {
		t.Fatalf("body mismatch for full read")
	}
}

func TestStreamVideoRangeNotSatisfiable(t *testing.T) {
	open := &fakeOpenStream{
		data: streamTestData(100),
		file: domain.FileEntry{Name: "movie.mp4", Length: 100, Streamable: true},
	}
	srv := newTestServer(t, WithOpenStream(open))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	req.Header.Set("Range", "bytes=100-")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */100" {
		t.Fatalf("Content-Range = %q", got)
	}
}

func TestStreamVideoNotReady(t *testing.T) {
	srv := newTestServer(t, WithOpenStream(&fakeOpenStream{err: domain.ErrNotReady}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "downloading") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestStreamVideoEchoesSessionStatus(t *testing.T) {
	srv := newTestServer(t, WithOpenStream(&fakeOpenStream{
		err: &domain.NotReadyError{Status: domain.SessionStarting},
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
	var resp retryLaterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "starting" {
		t.Fatalf("status field = %q, want the session's real status", resp.Status)
	}
}

func TestStreamVideoUnsupportedContainer(t *testing.T) {
	srv := newTestServer(t, WithOpenStream(&fakeOpenStream{err: domain.ErrUnsupportedMedia}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video?file=movie.mkv", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestStreamVideoEngineFailure(t *testing.T) {
	srv := newTestServer(t, WithOpenStream(&fakeOpenStream{
		err: usecase.ErrEngine,
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/video", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestParseByteRange(t *testing.T) {
	cases := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantErr   error
	}{
		{"explicit", "bytes=0-99", 1000, 0, 99, nil},
		{"open ended", "bytes=500-", 1000, 500, 999, nil},
		{"suffix", "bytes=-100", 1000, 900, 999, nil},
		{"end clamped", "bytes=0-5000", 1000, 0, 999, nil},
		{"start past eof", "bytes=1000-", 1000, 0, 0, errRangeNotSatisfiable},
		{"garbage", "bytes=abc", 1000, 0, 0, errInvalidRange},
		{"multi range", "bytes=0-1,5-9", 1000, 0, 0, errInvalidRange},
		{"no prefix", "0-99", 1000, 0, 0, errInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := parseByteRange(tc.header, tc.size)
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if start != tc.wantStart || end != tc.wantEnd {
				t.Fatalf("range = %d-%d, want %d-%d", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}
