// Package video infers (artist, title) pairs from unstructured video titles
// and selects the best video match for a track query.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"discosync/internal/match"
)

// Entry is one raw result from the video-search provider.
type Entry struct {
	ID       string
	Title    string
	Uploader string
}

// SearchProvider is the external video-catalog collaborator.
type SearchProvider interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]Entry, error)
}

// Interpretation is one (artist, title) reading of a video title, scored
// against the nominal query.
type Interpretation struct {
	Artist string
	Title  string
	Score  float64
}

// Match is the selected video for a track query.
type Match struct {
	ID          string
	Artist      string
	Title       string
	SourceTitle string
	Score       float64
}

// ScoreFloor is the minimum resolver score for a video to be selected.
const ScoreFloor = 0.70

// separatorRegex splits "Artist - Title" style video titles on the first
// dash, en-dash, colon, pipe or double slash.
var separatorRegex = regexp.MustCompile(`\s*(?:-|\x{2013}|:|\||//)\s*`)

// ResolveTitle infers the most likely (artist, title) split of a video title.
// Both orderings of a separator split are evaluated, plus two fallbacks that
// treat the uploader as the artist. The best-scoring interpretation wins; no
// threshold is applied here, that is the caller's concern. The boolean is
// false when no interpretation scored above zero.
func ResolveTitle(videoTitle, uploader, queryArtist, queryTitle string) (Interpretation, bool) {
	cleaned := match.StripJunkPhrases(videoTitle)

	var best Interpretation
	consider := func(artist, title string) {
		score := match.Similarity(queryArtist, queryTitle, artist, title)
		if score > best.Score {
			best = Interpretation{Artist: artist, Title: title, Score: score}
		}
	}

	parts := separatorRegex.Split(cleaned, 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		consider(parts[0], match.StripFeaturedArtists(parts[1]))
		consider(parts[1], match.StripFeaturedArtists(parts[0]))
	}

	// The uploader channel is often the artist, with the whole cleaned
	// title as the track name.
	consider(uploader, cleaned)
	consider(uploader, match.StripFeaturedArtists(cleaned))

	if best.Score <= 0 {
		return Interpretation{}, false
	}
	return best, true
}

// Searcher issues query variants against a video-search provider and keeps
// the globally best-scoring entry.
type Searcher struct {
	provider SearchProvider
	limit    int
}

func NewSearcher(provider SearchProvider, limit int) *Searcher {
	if limit <= 0 {
		limit = 10
	}
	return &Searcher{provider: provider, limit: limit}
}

// FindBestMatch searches the video catalog for the given track. Query
// variants are deduplicated textually before being issued. A provider error
// on any variant aborts the whole search: a degraded provider must not
// silently return lower-confidence answers. Returns nil when nothing clears
// the score floor.
func (s *Searcher) FindBestMatch(ctx context.Context, artist, title string) (*Match, error) {
	cleanedArtist := match.StripFeaturedArtists(artist)

	variants := dedupeQueries([]string{
		fmt.Sprintf("%s %s audio", artist, title),
		fmt.Sprintf("%s %s", artist, title),
		fmt.Sprintf("%s %s lyrics", artist, title),
		fmt.Sprintf("%s %s", cleanedArtist, title),
	})

	var best *Match
	for _, query := range variants {
		entries, err := s.provider.SearchVideos(ctx, query, s.limit)
		if err != nil {
			return nil, fmt.Errorf("video search %q: %w", query, err)
		}

		for _, entry := range entries {
			interp, ok := ResolveTitle(entry.Title, entry.Uploader, artist, title)
			if !ok {
				continue
			}
			slog.Debug("Scored video candidate", "title", entry.Title, "score", interp.Score)
			if interp.Score < ScoreFloor {
				continue
			}
			if best == nil || interp.Score > best.Score {
				best = &Match{
					ID:          entry.ID,
					Artist:      interp.Artist,
					Title:       interp.Title,
					SourceTitle: entry.Title,
					Score:       interp.Score,
				}
			}
		}
	}

	return best, nil
}

func dedupeQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	unique := make([]string, 0, len(queries))
	for _, q := range queries {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		unique = append(unique, q)
	}
	return unique
}
