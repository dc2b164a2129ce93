package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"moviestream/internal/domain"
)

const defaultOMDBEndpoint = "https://www.omdbapi.com/"

var ErrMovieNotFound = errors.New("movie not found")

type OMDBConfig struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// OMDBClient proxies title lookups to the OMDb API.
type OMDBClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type omdbPayload struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Poster     string `json:"Poster"`
	Plot       string `json:"Plot"`
	IMDBRating string `json:"imdbRating"`
	Genre      string `json:"Genre"`
	Runtime    string `json:"Runtime"`
	Actors     string `json:"Actors"`
	IMDBID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

func NewOMDBClient(cfg OMDBConfig) *OMDBClient {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultOMDBEndpoint
	}
	return &OMDBClient{
		client:   client,
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
	}
}

func (c *OMDBClient) Lookup(ctx context.Context, title string) (domain.MovieInfo, error) {
	uri, err := url.Parse(c.endpoint)
	if err != nil {
		return domain.MovieInfo{}, fmt.Errorf("invalid endpoint: %w", err)
	}
	values := uri.Query()
	values.Set("apikey", c.apiKey)
	values.Set("t", strings.TrimSpace(title))
	uri.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return domain.MovieInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.MovieInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.MovieInfo{}, fmt.Errorf("omdb HTTP %d", resp.StatusCode)
	}

	var payload omdbPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return domain.MovieInfo{}, fmt.Errorf("unexpected omdb payload")
	}
	if !strings.EqualFold(payload.Response, "true") {
		if payload.Error != "" {
			return domain.MovieInfo{}, fmt.Errorf("%w: %s", ErrMovieNotFound, payload.Error)
		}
		return domain.MovieInfo{}, ErrMovieNotFound
	}

	return domain.MovieInfo{
		Title:   payload.Title,
		Year:    payload.Year,
		Poster:  payload.Poster,
		Plot:    payload.Plot,
		Rating:  payload.IMDBRating,
		Genre:   payload.Genre,
		Runtime: payload.Runtime,
		Actors:  payload.Actors,
		IMDBID:  payload.IMDBID,
	}, nil
}
