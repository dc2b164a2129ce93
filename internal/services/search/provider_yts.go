package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moviestream/internal/domain"
)

const defaultYTSEndpoint = "https://yts.mx/api/v2/list_movies.json"

type YTSConfig struct {
	Endpoint  string
	UserAgent string
	Trackers  []string
	Client    *http.Client
}

// YTSProvider queries the YTS movie index. YTS torrents are single-file
// mp4 rips, which makes them good progressive-streaming candidates.
type YTSProvider struct {
	client    *http.Client
	endpoint  string
	userAgent string
	trackers  []string
}

type ytsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Movies []ytsMovie `json:"movies"`
	} `json:"data"`
}

type ytsMovie struct {
	TitleLong string       `json:"title_long"`
	Torrents  []ytsTorrent `json:"torrents"`
}

type ytsTorrent struct {
	Hash             string `json:"hash"`
	Quality          string `json:"quality"`
	SizeBytes        int64  `json:"size_bytes"`
	Seeds            int    `json:"seeds"`
	Peers            int    `json:"peers"`
	DateUploadedUnix int64  `json:"date_uploaded_unix"`
}

func NewYTSProvider(cfg YTSConfig) *YTSProvider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultYTSEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), defaultTrackers...)
	}

	return &YTSProvider{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		trackers:  trackers,
	}
}

func (p *YTSProvider) Name() string {
	return "yts"
}

func (p *YTSProvider) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	uri, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	values := uri.Query()
	values.Set("query_term", strings.TrimSpace(query))
	uri.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload ytsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*1024*1024)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("unexpected provider payload")
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("provider status %q", payload.Status)
	}

	var results []domain.SearchResult
	for _, movie := range payload.Data.Movies {
		title := strings.TrimSpace(movie.TitleLong)
		for _, torrent := range movie.Torrents {
			infoHash := normalizeInfoHash(torrent.Hash)
			if infoHash == "" || title == "" {
				continue
			}
			name := title
			if torrent.Quality != "" {
				name = title + " [" + torrent.Quality + "]"
			}
			var published *time.Time
			if torrent.DateUploadedUnix > 0 {
				value := time.Unix(torrent.DateUploadedUnix, 0).UTC()
				published = &value
			}
			results = append(results, domain.SearchResult{
				Title:       name,
				InfoHash:    infoHash,
				SizeBytes:   torrent.SizeBytes,
				Seeders:     torrent.Seeds,
				Leechers:    torrent.Peers,
				Source:      p.Name(),
				PublishedAt: published,
				MagnetLink:  buildMagnet(infoHash, name, p.trackers),
			})
		}
	}
	return results, nil
}
