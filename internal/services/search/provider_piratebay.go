package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moviestream/internal/domain"
)

const (
	defaultPirateBayEndpoint = "https://apibay.org/q.php"
	defaultUserAgent         = "moviestream/1.0"
)

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

type PirateBayConfig struct {
	Endpoint  string
	UserAgent string
	Trackers  []string
	Client    *http.Client
}

// PirateBayProvider queries the apibay JSON index.
type PirateBayProvider struct {
	client    *http.Client
	endpoint  string
	userAgent string
	trackers  []string
}

type pirateBayItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Size     string `json:"size"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
	Added    string `json:"added"`
}

func NewPirateBayProvider(cfg PirateBayConfig) *PirateBayProvider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultPirateBayEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), defaultTrackers...)
	}

	return &PirateBayProvider{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		trackers:  trackers,
	}
}

func (p *PirateBayProvider) Name() string {
	return "piratebay"
}

func (p *PirateBayProvider) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	uri, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	values := uri.Query()
	values.Set("q", strings.TrimSpace(query))
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

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}

	var items []pirateBayItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("unexpected provider payload")
	}

	results := make([]domain.SearchResult, 0, len(items))
	for _, item := range items {
		result, ok := p.toResult(item)
		if !ok {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (p *PirateBayProvider) toResult(item pirateBayItem) (domain.SearchResult, bool) {
	name := strings.TrimSpace(item.Name)
	infoHash := normalizeInfoHash(item.InfoHash)
	if infoHash == "" || name == "" {
		return domain.SearchResult{}, false
	}
	// apibay signals an empty result set with a sentinel row.
	if strings.Contains(strings.ToLower(name), "no results returned") {
		return domain.SearchResult{}, false
	}

	return domain.SearchResult{
		Title:       name,
		InfoHash:    infoHash,
		SizeBytes:   atoi64(item.Size),
		Seeders:     atoi(item.Seeders),
		Leechers:    atoi(item.Leechers),
		Source:      p.Name(),
		PublishedAt: parseUnixTS(item.Added),
		MagnetLink:  buildMagnet(infoHash, name, p.trackers),
	}, true
}

func atoi(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}

func atoi64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseUnixTS(raw string) *time.Time {
	ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ts <= 0 {
		return nil
	}
	value := time.Unix(ts, 0).UTC()
	return &value
}
