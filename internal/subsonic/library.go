package subsonic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"discosync/internal/match"
)

const (
	scanPollInterval    = 2 * time.Second
	scanMaxStatusErrors = 10
	searchSongCount     = "20"
)

// ErrScanStatusUnavailable aborts the scan wait after too many consecutive
// failed status reads.
var ErrScanStatusUnavailable = errors.New("subsonic: scan status unavailable")

// SongInfo is the metadata needed to locate and re-resolve a stored track.
type SongInfo struct {
	ID     string
	Artist string
	Title  string
	Path   string
}

// SearchTracks implements match.SearchProvider against the search3 endpoint.
// Only songs are requested; artist and album hits are suppressed.
func (c *Client) SearchTracks(ctx context.Context, query string) ([]match.LibraryTrack, error) {
	params := c.baseParams()
	params.Set("query", query)
	params.Set("songCount", searchSongCount)
	params.Set("artistCount", "0")
	params.Set("albumCount", "0")

	resp, err := c.getJSON(ctx, "search3", params, defaultTries)
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return nil, nil
	}

	tracks := make([]match.LibraryTrack, 0, len(resp.SearchResult3.Songs))
	for _, song := range resp.SearchResult3.Songs {
		tracks = append(tracks, match.LibraryTrack{
			ID:      song.ID,
			Artist:  song.Artist,
			Title:   song.Title,
			IsLocal: !song.IsExternal,
		})
	}
	return tracks, nil
}

// Playlists lists all playlists on the server.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	resp, err := c.getJSON(ctx, "getPlaylists", c.baseParams(), defaultTries)
	if err != nil {
		return nil, err
	}
	if resp.Playlists == nil {
		return nil, nil
	}
	return resp.Playlists.Playlists, nil
}

// PlaylistMemberIDs returns the ids of every track that appears in any
// playlist other than the named managed one. Failures on individual
// playlists are skipped; the rest still count as protection data.
func (c *Client) PlaylistMemberIDs(ctx context.Context, excludePlaylist string) (map[string]struct{}, error) {
	playlists, err := c.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	for _, playlist := range playlists {
		if playlist.Name == excludePlaylist {
			continue
		}
		params := c.baseParams()
		params.Set("id", playlist.ID)
		resp, err := c.getJSON(ctx, "getPlaylist", params, defaultTries)
		if err != nil {
			slog.Warn("Failed to read playlist members", "playlist", playlist.Name, "error", err)
			continue
		}
		if resp.Playlist == nil {
			continue
		}
		for _, entry := range resp.Playlist.Entries {
			if entry.ID != "" {
				ids[entry.ID] = struct{}{}
			}
		}
	}
	return ids, nil
}

// StarredIDs returns the ids of all starred songs.
func (c *Client) StarredIDs(ctx context.Context) (map[string]struct{}, error) {
	resp, err := c.getJSON(ctx, "getStarred", c.baseParams(), defaultTries)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	if resp.Starred == nil {
		return ids, nil
	}
	for _, song := range resp.Starred.Songs {
		if song.ID != "" {
			ids[song.ID] = struct{}{}
		}
	}
	return ids, nil
}

// Song fetches the metadata for one track id.
func (c *Client) Song(ctx context.Context, id string) (*SongInfo, error) {
	params := c.baseParams()
	params.Set("id", id)

	resp, err := c.getJSON(ctx, "getSong", params, defaultTries)
	if err != nil {
		return nil, err
	}
	if resp.Song == nil {
		return nil, fmt.Errorf("%w: missing song element", ErrMalformed)
	}
	return &SongInfo{
		ID:     resp.Song.ID,
		Artist: resp.Song.Artist,
		Title:  resp.Song.Title,
		Path:   resp.Song.Path,
	}, nil
}

// TriggerDownload hits the stream endpoint for the id and closes the
// connection after the first bytes. Servers that proxy an external catalog
// treat this as a fetch trigger; the actual transfer happens server-side.
func (c *Client) TriggerDownload(ctx context.Context, id string) error {
	params := c.baseParams()
	params.Set("id", id)
	params.Set("maxBitRate", "1")
	endpointURL := fmt.Sprintf("%s/rest/stream?%s", c.baseURL, params.Encode())

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to trigger download for %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download trigger for %s failed with status: %d", id, resp.StatusCode)
	}

	// Read a single chunk so the server commits to the fetch.
	buf := make([]byte, 1024)
	if _, err := resp.Body.Read(buf); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read download stream for %s: %w", id, err)
	}
	return nil
}

// CreatePlaylist creates a playlist containing the given song ids.
func (c *Client) CreatePlaylist(ctx context.Context, name string, songIDs []string) error {
	params := c.baseParams()
	params.Set("name", name)
	for _, id := range songIDs {
		params.Add("songId", id)
	}

	if _, err := c.getJSON(ctx, "createPlaylist", params, defaultTries); err != nil {
		return fmt.Errorf("failed to create playlist %q: %w", name, err)
	}
	slog.Info("Created playlist", "name", name, "tracks", len(songIDs))
	return nil
}

// DeletePlaylist removes a playlist by id.
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	params := c.baseParams()
	params.Set("id", id)
	if _, err := c.getJSON(ctx, "deletePlaylist", params, defaultTries); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return nil
}

// StartScan kicks off a media library scan and waits for it to finish.
// Status is polled at a fixed interval; a successful poll resets the failure
// budget, and the wait aborts after too many consecutive failed reads.
func (c *Client) StartScan(ctx context.Context) error {
	if _, err := c.getJSON(ctx, "startScan", c.baseParams(), defaultTries); err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}
	slog.Info("Library scan started")

	consecutiveFailures := 0
	for {
		select {
		case <-time.After(scanPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		resp, err := c.getJSON(ctx, "getScanStatus", c.baseParams(), 1)
		if err != nil {
			consecutiveFailures++
			if consecutiveFailures >= scanMaxStatusErrors {
				return fmt.Errorf("%w: %d consecutive failures", ErrScanStatusUnavailable, consecutiveFailures)
			}
			continue
		}
		consecutiveFailures = 0

		if resp.ScanStatus == nil {
			return fmt.Errorf("%w: missing scanStatus element", ErrMalformed)
		}
		if !resp.ScanStatus.Scanning {
			slog.Info("Library scan finished", "count", resp.ScanStatus.Count)
			return nil
		}
		slog.Debug("Library scan in progress", "count", resp.ScanStatus.Count)
	}
}
