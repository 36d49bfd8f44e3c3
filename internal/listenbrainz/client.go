// Package listenbrainz reads the weekly recommendation playlist that
// ListenBrainz generates for a user.
package listenbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"discosync/internal/domain"
)

const requestTimeout = 30 * time.Second

// PlaylistInfo identifies the current weekly playlist. Name carries the
// playlist date so consecutive weeks never collide.
type PlaylistInfo struct {
	MBID string
	Name string
}

// Client fetches playlists from the ListenBrainz API. Failures here are
// bootstrap failures: the caller cannot establish the run's identity and
// must stop before any mutation.
type Client struct {
	baseURL    string
	user       string
	httpClient *http.Client
}

func NewClient(baseURL, user string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type createdForResponse struct {
	Playlists []struct {
		Playlist struct {
			Identifier string `json:"identifier"`
			Date       string `json:"date"`
		} `json:"playlist"`
	} `json:"playlists"`
}

type playlistResponse struct {
	Playlist struct {
		Tracks []struct {
			Creator string `json:"creator"`
			Title   string `json:"title"`
			Album   string `json:"album"`
		} `json:"track"`
	} `json:"playlist"`
}

// CurrentWeekly returns the newest "created for" playlist. The playlist name
// is derived from its date, formatted as "<date> Weekly Discovery".
func (c *Client) CurrentWeekly(ctx context.Context) (*PlaylistInfo, error) {
	endpointURL := fmt.Sprintf("%s/1/user/%s/playlists/createdfor", c.baseURL, c.user)

	var payload createdForResponse
	if err := c.getJSON(ctx, endpointURL, &payload); err != nil {
		return nil, err
	}
	if len(payload.Playlists) == 0 {
		return nil, fmt.Errorf("no created-for playlist found for user %s", c.user)
	}

	latest := payload.Playlists[0].Playlist
	if latest.Identifier == "" {
		return nil, fmt.Errorf("created-for playlist is missing an identifier")
	}
	parts := strings.Split(latest.Identifier, "/")
	mbid := parts[len(parts)-1]

	if latest.Date == "" {
		return nil, fmt.Errorf("created-for playlist is missing a date")
	}
	date, err := time.Parse(time.RFC3339, latest.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse playlist date %q: %w", latest.Date, err)
	}

	return &PlaylistInfo{
		MBID: mbid,
		Name: fmt.Sprintf("%s Weekly Discovery", date.Format("2006-01-02")),
	}, nil
}

// Tracks lists the nominal track queries of a playlist.
func (c *Client) Tracks(ctx context.Context, mbid string) ([]domain.TrackQuery, error) {
	endpointURL := fmt.Sprintf("%s/1/playlist/%s", c.baseURL, mbid)

	var payload playlistResponse
	if err := c.getJSON(ctx, endpointURL, &payload); err != nil {
		return nil, err
	}

	queries := make([]domain.TrackQuery, 0, len(payload.Playlist.Tracks))
	for _, track := range payload.Playlist.Tracks {
		queries = append(queries, domain.TrackQuery{
			Artist: track.Creator,
			Title:  track.Title,
			Album:  track.Album,
		})
	}
	return queries, nil
}

func (c *Client) getJSON(ctx context.Context, endpointURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("listenbrainz request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listenbrainz request failed with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode listenbrainz response: %w", err)
	}
	return nil
}
