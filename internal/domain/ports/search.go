package ports

import (
	"context"

	"moviestream/internal/domain"
)

// Searcher is the metadata-search collaborator: given a free-text query it
// returns torrent candidates ranked by seeders, best first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}
