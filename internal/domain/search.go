package domain

import "time"

// SearchResult is one torrent candidate from the metadata-search
// collaborator.
type SearchResult struct {
	Title       string     `json:"title"`
	InfoHash    string     `json:"infoHash"`
	SizeBytes   int64      `json:"sizeBytes"`
	Seeders     int        `json:"seeders"`
	Leechers    int        `json:"leechers"`
	Source      string     `json:"source,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	MagnetLink  string     `json:"magnetLink"`
}

// MovieInfo is the detail-lookup projection returned by the OMDb proxy.
type MovieInfo struct {
	Title   string `json:"title"`
	Year    string `json:"year"`
	Poster  string `json:"poster"`
	Plot    string `json:"plot"`
	Rating  string `json:"rating"`
	Genre   string `json:"genre"`
	Runtime string `json:"runtime"`
	Actors  string `json:"actors"`
	IMDBID  string `json:"imdbId"`
}
