// Package lrclib wraps the LRCLIB REST API for synced lyric retrieval.
package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chorus/internal/services"
)

const (
	defaultBaseURL     = "https://lrclib.net"
	defaultUserAgent   = "chorus/dev"
	defaultHTTPTimeout = 15 * time.Second
)

// Config describes the LRCLIB client configuration.
type Config struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Client queries LRCLIB for time-synced lyrics.
type Client struct {
	baseURL   *url.URL
	userAgent string
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("lrclib: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{baseURL: baseURL, userAgent: userAgent, http: httpClient}, nil
}

type record struct {
	ID           int64  `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	SyncedLyrics string `json:"syncedLyrics"`
	PlainLyrics  string `json:"plainLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// Result holds the lyrics found for a track.
type Result struct {
	Artist string
	Title  string
	// Synced is LRC-format text with line timestamps.
	Synced string
}

// FindSynced looks up synced lyrics by exact artist and title, falling back
// to a free-text search. Returns ErrNotFound when no record carries synced
// lyrics.
func (c *Client) FindSynced(ctx context.Context, artist, title string) (Result, error) {
	if strings.TrimSpace(title) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "fetch-lyrics", "lookup", "empty track title", nil)
	}

	if rec, err := c.get(ctx, artist, title); err != nil {
		return Result{}, err
	} else if rec != nil && strings.TrimSpace(rec.SyncedLyrics) != "" {
		return resultFrom(*rec), nil
	}

	recs, err := c.search(ctx, strings.TrimSpace(artist+" "+title))
	if err != nil {
		return Result{}, err
	}
	for _, rec := range recs {
		if strings.TrimSpace(rec.SyncedLyrics) != "" {
			return resultFrom(rec), nil
		}
	}
	return Result{}, services.Wrap(services.ErrNotFound, "fetch-lyrics", "lookup",
		fmt.Sprintf("no synced lyrics for %q by %q", title, artist), nil)
}

func resultFrom(rec record) Result {
	return Result{Artist: rec.ArtistName, Title: rec.TrackName, Synced: rec.SyncedLyrics}
}

// get hits /api/get, which matches artist and title exactly. A 404 is a
// normal miss, not an error.
func (c *Client) get(ctx context.Context, artist, title string) (*record, error) {
	query := url.Values{}
	query.Set("artist_name", artist)
	query.Set("track_name", title)

	body, status, err := c.do(ctx, "/api/get", query)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "fetch-lyrics", "lookup",
			fmt.Sprintf("lrclib get returned status %d", status), nil)
	}

	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, services.Wrap(services.ErrParse, "fetch-lyrics", "lookup", "decode lrclib response", err)
	}
	return &rec, nil
}

func (c *Client) search(ctx context.Context, q string) ([]record, error) {
	query := url.Values{}
	query.Set("q", q)

	body, status, err := c.do(ctx, "/api/search", query)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "fetch-lyrics", "search",
			fmt.Sprintf("lrclib search returned status %d", status), nil)
	}

	var recs []record
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, services.Wrap(services.ErrParse, "fetch-lyrics", "search", "decode lrclib response", err)
	}
	return recs, nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("lrclib: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "fetch-lyrics", "request", "lrclib request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "fetch-lyrics", "request", "read lrclib response", err)
	}
	return body, resp.StatusCode, nil
}
