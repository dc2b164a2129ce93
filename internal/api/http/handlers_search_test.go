package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moviestream/internal/domain"
)

type fakeSearcher struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []domain.SearchResult{
		{Title: "Movie A", InfoHash: "aaa", Seeders: 50, MagnetLink: "magnet:?xt=urn:btih:aaa"},
		{Title: "Movie B", InfoHash: "bbb", Seeders: 10, MagnetLink: "magnet:?xt=urn:btih:bbb"},
	}}
	srv := newTestServer(t, WithSearcher(searcher))

	req := httptest.NewRequest(http.MethodGet, "/api/search?query=movie", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.Results[0].Title != "Movie A" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv := newTestServer(t, WithSearcher(&fakeSearcher{}))

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, WithSearcher(&fakeSearcher{err: errors.New("all providers down")}))

	req := httptest.NewRequest(http.MethodGet, "/api/search?query=movie", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestMagnetReturnsTopResult(t *testing.T) {
	searcher := &fakeSearcher{results: []domain.SearchResult{
		{Title: "Best Seeded", InfoHash: "ccc", Seeders: 99, MagnetLink: "magnet:?xt=urn:btih:ccc"},
		{Title: "Runner Up", InfoHash: "ddd", Seeders: 5, MagnetLink: "magnet:?xt=urn:btih:ddd"},
	}}
	srv := newTestServer(t, WithSearcher(searcher))

	req := httptest.NewRequest(http.MethodPost, "/api/magnet", strings.NewReader(`{"movieName":"best seeded"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp magnetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MagnetLink != "magnet:?xt=urn:btih:ccc" || resp.Title != "Best Seeded" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "best seeded" {
		t.Fatalf("queries = %v", searcher.queries)
	}
}

func TestMagnetNoResults(t *testing.T) {
	srv := newTestServer(t, WithSearcher(&fakeSearcher{}))

	req := httptest.NewRequest(http.MethodPost, "/api/magnet", strings.NewReader(`{"movieName":"obscure"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMagnetRequiresPost(t *testing.T) {
	srv := newTestServer(t, WithSearcher(&fakeSearcher{}))

	req := httptest.NewRequest(http.MethodGet, "/api/magnet", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
