// Package subsonic is a client for the Subsonic REST API surface the
// pipeline needs: search, playlists, starred tracks, song lookup, download
// triggering and library scans.
package subsonic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiVersion = "1.16.1"
	clientName = "discosync"

	defaultTries   = 3
	requestTimeout = 30 * time.Second
)

var (
	// ErrRejected marks an explicit failure envelope from the server.
	// These are never retried.
	ErrRejected = errors.New("subsonic: request rejected")
	// ErrMalformed marks an undecodable payload or a response missing
	// required fields.
	ErrMalformed = errors.New("subsonic: malformed response")
)

// Client talks to a Subsonic-compatible server. All calls go through a rate
// limiter so weekly runs stay polite, and network-level failures are retried
// with exponential backoff up to a bounded count.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, user, password string) *Client {
	return &Client{
		baseURL:    baseURL,
		user:       user,
		password:   password,
		httpClient: &http.Client{Timeout: requestTimeout},
		// One request every half second matches the politeness delay
		// the server operators expect from periodic sync clients.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

type envelope struct {
	Response apiResponse `json:"subsonic-response"`
}

type apiResponse struct {
	Status        string              `json:"status"`
	Error         *apiError           `json:"error,omitempty"`
	SearchResult3 *searchResult       `json:"searchResult3,omitempty"`
	Playlists     *playlistsContainer `json:"playlists,omitempty"`
	Playlist      *playlistDetail     `json:"playlist,omitempty"`
	Starred       *starredContainer   `json:"starred,omitempty"`
	Song          *songEntry          `json:"song,omitempty"`
	ScanStatus    *scanStatus         `json:"scanStatus,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type searchResult struct {
	Songs []songEntry `json:"song"`
}

type songEntry struct {
	ID         string `json:"id"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	IsExternal bool   `json:"isExternal"`
}

type playlistsContainer struct {
	Playlists []Playlist `json:"playlist"`
}

// Playlist is a server-side playlist reference.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type playlistDetail struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Entries []songEntry `json:"entry"`
}

type starredContainer struct {
	Songs []songEntry `json:"song"`
}

type scanStatus struct {
	Scanning bool `json:"scanning"`
	Count    int  `json:"count"`
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("u", c.user)
	params.Set("p", c.password)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")
	return params
}

// getJSON performs one API call with bounded retry. Network errors and
// non-2xx statuses back off exponentially; an explicit failure envelope or
// an undecodable body returns immediately.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, tries int) (*apiResponse, error) {
	endpointURL := fmt.Sprintf("%s/rest/%s?%s", c.baseURL, endpoint, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.doRequest(ctx, endpointURL)
		if err != nil {
			lastErr = err
			wait := time.Duration(1<<(attempt-1)) * time.Second
			slog.Warn("Subsonic request failed", "endpoint", endpoint, "attempt", attempt, "tries", tries, "error", err)
			if attempt < tries {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}

		var env envelope
		if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %v", ErrMalformed, decodeErr)
		}
		resp.Body.Close()

		if env.Response.Status == "failed" {
			apiErr := env.Response.Error
			if apiErr == nil {
				return nil, fmt.Errorf("%w: no error detail", ErrRejected)
			}
			return nil, fmt.Errorf("%w: code=%d %s", ErrRejected, apiErr.Code, apiErr.Message)
		}

		return &env.Response, nil
	}

	return nil, fmt.Errorf("subsonic %s: giving up after %d attempts: %w", endpoint, tries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, endpointURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp, nil
}
