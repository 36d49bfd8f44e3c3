// Package pipeline orchestrates one weekly run: it resolves the current
// recommendation playlist against the library, triggers the downloads that
// make the missing tracks local, falls back to video audio where the library
// cannot deliver, sweeps the previous generation's downloads, and publishes
// the new playlist server-side.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ansi "github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"discosync/config"
	"discosync/internal/domain"
	"discosync/internal/files"
	"discosync/internal/listenbrainz"
	"discosync/internal/match"
	"discosync/internal/state"
	"discosync/internal/subsonic"
	"discosync/internal/video"
)

// downloadTriggerDelay spaces out stream-trigger requests so the library
// server's external fetcher is not hammered.
const downloadTriggerDelay = 3 * time.Second

// Feed supplies the weekly playlist identity and its tracks.
type Feed interface {
	CurrentWeekly(ctx context.Context) (*listenbrainz.PlaylistInfo, error)
	Tracks(ctx context.Context, mbid string) ([]domain.TrackQuery, error)
}

// Library is the media server surface the pipeline mutates.
type Library interface {
	match.SearchProvider
	Playlists(ctx context.Context) ([]subsonic.Playlist, error)
	PlaylistMemberIDs(ctx context.Context, excludePlaylist string) (map[string]struct{}, error)
	StarredIDs(ctx context.Context) (map[string]struct{}, error)
	Song(ctx context.Context, id string) (*subsonic.SongInfo, error)
	TriggerDownload(ctx context.Context, id string) error
	CreatePlaylist(ctx context.Context, name string, songIDs []string) error
	DeletePlaylist(ctx context.Context, id string) error
	StartScan(ctx context.Context) error
}

// VideoSource finds and fetches fallback audio for tracks the library cannot
// deliver.
type VideoSource interface {
	FindBestMatch(ctx context.Context, artist, title string) (*video.Match, error)
	Download(ctx context.Context, m *video.Match, queryArtist, queryTitle string) (string, error)
}

type Pipeline struct {
	cfg        *config.Config
	feed       Feed
	library    Library
	aggregator *match.Aggregator
	videos     VideoSource
	store      *state.Store
}

func New(cfg *config.Config, feed Feed, library Library, videos VideoSource, store *state.Store) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		feed:       feed,
		library:    library,
		aggregator: match.NewAggregator(library),
		videos:     videos,
		store:      store,
	}
}

// queuedTrack pairs a remote candidate with the query it answered, so the
// query can be retried after the download and handed to the video fallback.
type queuedTrack struct {
	query     domain.TrackQuery
	candidate domain.Candidate
}

// Run executes one full generation. The run is a no-op when the current
// weekly playlist has already been processed.
func (p *Pipeline) Run(ctx context.Context) error {
	info, err := p.feed.CurrentWeekly(ctx)
	if err != nil {
		return fmt.Errorf("failed to identify weekly playlist: %w", err)
	}

	previous, err := p.store.LoadCurrent(ctx)
	if err != nil {
		slog.Warn("Previous generation record unreadable, continuing without it", "error", err)
		previous = nil
	}
	if previous == nil {
		// A crash between the store's rotation and the new write leaves only
		// the demoted record; it is still the last completed generation.
		previous, err = p.store.LoadPrevious(ctx)
		if err != nil {
			slog.Warn("Demoted generation record unreadable, continuing without it", "error", err)
			previous = nil
		}
	}
	if previous != nil && previous.PlaylistName == info.Name {
		slog.Info("Playlist already processed", "name", info.Name)
		return nil
	}

	queries, err := p.feed.Tracks(ctx, info.MBID)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist tracks: %w", err)
	}
	if len(queries) == 0 {
		slog.Info("Weekly playlist is empty, nothing to do", "name", info.Name)
		return nil
	}
	slog.Info("Processing weekly playlist", "name", info.Name, "tracks", len(queries))

	record := domain.NewGenerationRecord(info.Name)

	queued := p.resolveTracks(ctx, queries, record)
	videoQueue := p.downloadFromLibrary(ctx, queued, record)
	p.downloadFromVideo(ctx, videoQueue, record)

	if previous != nil {
		p.cleanupPrevious(ctx, previous)
	}

	if ids := record.UniqueTrackIDs(); len(ids) > 0 {
		if err := p.library.CreatePlaylist(ctx, info.Name, ids); err != nil {
			slog.Error("Failed to create playlist", "name", info.Name, "error", err)
		}
	} else {
		slog.Warn("No track resolved, skipping playlist creation", "name", info.Name)
	}

	if err := p.store.Commit(ctx, record); err != nil {
		return fmt.Errorf("failed to persist generation record: %w", err)
	}

	slog.Info("Run complete",
		"playlist", info.Name,
		"alreadyLocal", len(record.AlreadyLocal),
		"libraryDownloads", len(record.SubsonicDownloaded),
		"videoDownloads", len(record.YouTubeDownloaded),
		"onTheFly", len(record.OnTheFly),
		"notFound", len(record.NotFound),
	)
	return nil
}

// resolveTracks classifies every query as already local, downloadable from
// the library catalog, or unresolved so far. Remote matches either queue for
// download or, in on-the-fly mode, join the playlist directly.
func (p *Pipeline) resolveTracks(ctx context.Context, queries []domain.TrackQuery, record *domain.GenerationRecord) []queuedTrack {
	bar := progressbar.NewOptions(
		len(queries),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan][1/3][reset] Resolving tracks..."),
	)

	var queued []queuedTrack
	for _, query := range queries {
		best := p.resolveQuery(ctx, query)
		switch {
		case best == nil:
			queued = append(queued, queuedTrack{query: query})
		case best.IsLocal:
			record.AlreadyLocal = append(record.AlreadyLocal, *best)
			record.AllTrackIDs = append(record.AllTrackIDs, best.ID)
			slog.Debug("Track already local", "artist", query.Artist, "title", query.Title, "id", best.ID)
		case p.cfg.Cleanup.AddOnTheFly:
			record.OnTheFly = append(record.OnTheFly, best.ID)
			record.AllTrackIDs = append(record.AllTrackIDs, best.ID)
			slog.Debug("Track added on the fly", "artist", query.Artist, "title", query.Title, "id", best.ID)
		default:
			queued = append(queued, queuedTrack{query: query, candidate: *best})
		}
		bar.Add(1)
	}
	fmt.Println()
	return queued
}

func (p *Pipeline) resolveQuery(ctx context.Context, query domain.TrackQuery) *domain.Candidate {
	candidates, err := p.aggregator.Search(ctx, query.Artist, query.Title)
	if err != nil {
		slog.Warn("Candidate search failed", "artist", query.Artist, "title", query.Title, "error", err)
		return nil
	}
	return match.SelectBest(candidates)
}

// downloadFromLibrary triggers the catalog fetch for every queued remote
// match, runs one library scan, and re-resolves each query to confirm the
// track became local. Queries that did not make it fall through to the video
// fallback, together with the ones that never matched at all.
func (p *Pipeline) downloadFromLibrary(ctx context.Context, queued []queuedTrack, record *domain.GenerationRecord) []domain.TrackQuery {
	var videoQueue []domain.TrackQuery
	var triggered []queuedTrack

	for _, item := range queued {
		if item.candidate.ID == "" {
			videoQueue = append(videoQueue, item.query)
			continue
		}
		triggered = append(triggered, item)
	}
	if len(triggered) == 0 {
		return videoQueue
	}

	bar := progressbar.NewOptions(
		len(triggered),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan][2/3][reset] Downloading tracks..."),
	)

	for i, item := range triggered {
		if err := p.library.TriggerDownload(ctx, item.candidate.ID); err != nil {
			slog.Warn("Download trigger failed", "id", item.candidate.ID, "title", item.query.Title, "error", err)
		}
		bar.Add(1)
		if i < len(triggered)-1 {
			if !sleepCtx(ctx, downloadTriggerDelay) {
				break
			}
		}
	}
	fmt.Println()

	if err := p.library.StartScan(ctx); err != nil {
		slog.Warn("Library scan failed after downloads", "error", err)
	}

	for _, item := range triggered {
		best := p.resolveQuery(ctx, item.query)
		if best != nil && best.IsLocal {
			record.SubsonicDownloaded = append(record.SubsonicDownloaded, best.ID)
			record.AllTrackIDs = append(record.AllTrackIDs, best.ID)
			continue
		}
		slog.Info("Track did not become local, queuing video fallback",
			"artist", item.query.Artist, "title", item.query.Title)
		videoQueue = append(videoQueue, item.query)
	}
	return videoQueue
}

// downloadFromVideo is the last resort: it fetches audio from video search
// results into the library tree, rescans, and re-resolves. Whatever still is
// not local lands in the record's not-found list.
func (p *Pipeline) downloadFromVideo(ctx context.Context, queue []domain.TrackQuery, record *domain.GenerationRecord) {
	if len(queue) == 0 {
		return
	}

	bar := progressbar.NewOptions(
		len(queue),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan][3/3][reset] Fetching fallback audio..."),
	)

	var fetched []domain.TrackQuery
	for _, query := range queue {
		if p.fetchVideoAudio(ctx, query) {
			fetched = append(fetched, query)
		} else {
			record.NotFound = append(record.NotFound, query)
		}
		bar.Add(1)
	}
	fmt.Println()

	if len(fetched) == 0 {
		return
	}
	if err := p.library.StartScan(ctx); err != nil {
		slog.Warn("Library scan failed after video downloads", "error", err)
	}

	for _, query := range fetched {
		best := p.resolveQuery(ctx, query)
		if best != nil && best.IsLocal {
			record.YouTubeDownloaded = append(record.YouTubeDownloaded, best.ID)
			record.AllTrackIDs = append(record.AllTrackIDs, best.ID)
			continue
		}
		slog.Warn("Fetched audio not visible in library yet", "artist", query.Artist, "title", query.Title)
		record.NotFound = append(record.NotFound, query)
	}
}

func (p *Pipeline) fetchVideoAudio(ctx context.Context, query domain.TrackQuery) bool {
	m, err := p.videos.FindBestMatch(ctx, query.Artist, query.Title)
	if err != nil {
		slog.Warn("Video search failed", "artist", query.Artist, "title", query.Title, "error", err)
		return false
	}
	if m == nil {
		slog.Info("No confident video match", "artist", query.Artist, "title", query.Title)
		return false
	}
	if _, err := p.videos.Download(ctx, m, query.Artist, query.Title); err != nil {
		slog.Warn("Video download failed", "video", m.SourceTitle, "error", err)
		return false
	}
	return true
}

// cleanupPrevious removes the previous generation's playlist from the server
// and deletes the files of its downloads that nothing protects anymore.
func (p *Pipeline) cleanupPrevious(ctx context.Context, previous *domain.GenerationRecord) {
	p.deleteServerPlaylist(ctx, previous.PlaylistName)

	membership, err := p.library.PlaylistMemberIDs(ctx, previous.PlaylistName)
	if err != nil {
		slog.Error("Failed to gather playlist membership, skipping cleanup", "error", err)
		return
	}
	favorites, err := p.library.StarredIDs(ctx)
	if err != nil {
		slog.Error("Failed to gather favorites, skipping cleanup", "error", err)
		return
	}

	deletions := state.PlanDeletions(ctx, previous, membership, favorites,
		p.cfg.Cleanup.OnTheFlyCleanup, p.resolveLocalByID)

	deleted, unlocatable := 0, 0
	for _, id := range deletions {
		song, err := p.library.Song(ctx, id)
		if err != nil {
			slog.Warn("Failed to look up track for deletion", "id", id, "error", err)
			unlocatable++
			continue
		}
		path, ok := files.Locate(song.Path, song.Title, p.cfg.LibraryPath)
		if !ok {
			slog.Warn("File not found for deletion", "id", id, "path", song.Path)
			unlocatable++
			continue
		}
		if err := files.Delete(path); err != nil {
			slog.Warn("Failed to delete file", "path", path, "error", err)
			unlocatable++
			continue
		}
		slog.Debug("Deleted file", "path", path)
		deleted++
	}
	slog.Info("Cleanup finished", "deleted", deleted, "unlocatable", unlocatable, "protectedFrom", len(previous.UniqueTrackIDs()))
}

func (p *Pipeline) deleteServerPlaylist(ctx context.Context, name string) {
	playlists, err := p.library.Playlists(ctx)
	if err != nil {
		slog.Warn("Failed to list playlists", "error", err)
		return
	}
	for _, playlist := range playlists {
		if playlist.Name != name {
			continue
		}
		if err := p.library.DeletePlaylist(ctx, playlist.ID); err != nil {
			slog.Warn("Failed to delete previous playlist", "name", name, "error", err)
		}
		return
	}
}

// resolveLocalByID re-resolves a track id to a local equivalent using its
// current server metadata. Used by cleanup for on-the-fly tracks.
func (p *Pipeline) resolveLocalByID(ctx context.Context, id string) (string, bool) {
	song, err := p.library.Song(ctx, id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Debug("Failed to look up on-the-fly track", "id", id, "error", err)
		}
		return "", false
	}
	best := p.resolveQuery(ctx, domain.TrackQuery{Artist: song.Artist, Title: song.Title})
	if best == nil || !best.IsLocal {
		return "", false
	}
	return best.ID, true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
