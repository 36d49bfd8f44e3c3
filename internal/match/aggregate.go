package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"discosync/internal/domain"
)

// LibraryTrack is a raw, unscored search hit from the library server.
type LibraryTrack struct {
	ID      string
	Artist  string
	Title   string
	IsLocal bool
}

// SearchProvider is the external candidate-search collaborator. A failure
// return is treated as an empty result by the aggregator; retries are the
// provider's responsibility, never the aggregator's.
type SearchProvider interface {
	SearchTracks(ctx context.Context, query string) ([]LibraryTrack, error)
}

const (
	// keepThreshold is the minimum boosted score for a hit to survive.
	keepThreshold = 0.80
	// localExitThreshold stops further query variants once a local hit
	// this confident has been accumulated.
	localExitThreshold = 0.9
)

// Aggregator issues several normalized query variants against a search
// provider and merges the scored results.
type Aggregator struct {
	provider SearchProvider
}

func NewAggregator(provider SearchProvider) *Aggregator {
	return &Aggregator{provider: provider}
}

// Search resolves candidates for the given nominal artist and title. At most
// four query variants are issued; a confident local hit short-circuits the
// remaining variants. Results are deduplicated by id, the last scored
// occurrence winning, and every returned candidate scores >= 0.80 against
// the original (uncleaned) query.
func (a *Aggregator) Search(ctx context.Context, artist, title string) ([]domain.Candidate, error) {
	cleanedArtist := StripFeaturedArtists(artist)
	cleanedTitle := StripPunctuation(title)

	variants := []string{
		fmt.Sprintf("%s %s", artist, title),
		fmt.Sprintf("%s %s", cleanedArtist, cleanedTitle),
		fmt.Sprintf("%s %s", cleanedArtist, title),
		fmt.Sprintf("%s %s", artist, cleanedTitle),
	}

	var accumulated []domain.Candidate
	for _, query := range variants {
		if hasConfidentLocal(accumulated) {
			break
		}

		tracks, err := a.provider.SearchTracks(ctx, strings.TrimSpace(query))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Library search variant failed", "query", query, "error", err)
			continue
		}

		for _, track := range tracks {
			score := BoostedSimilarity(artist, title, track.Artist, track.Title)
			if score < keepThreshold {
				continue
			}
			accumulated = append(accumulated, domain.Candidate{
				ID:         track.ID,
				Artist:     track.Artist,
				Title:      track.Title,
				IsLocal:    track.IsLocal,
				Similarity: score,
			})
		}
	}

	return dedupeByID(accumulated), nil
}

func hasConfidentLocal(candidates []domain.Candidate) bool {
	for _, c := range candidates {
		if c.IsLocal && c.Similarity > localExitThreshold {
			return true
		}
	}
	return false
}

// dedupeByID keeps first-appearance order but lets a later occurrence of the
// same id replace the earlier one, since later query variants may have
// produced a refreshed score for the same track.
func dedupeByID(candidates []domain.Candidate) []domain.Candidate {
	index := make(map[string]int, len(candidates))
	unique := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if at, ok := index[c.ID]; ok {
			unique[at] = c
			continue
		}
		index[c.ID] = len(unique)
		unique = append(unique, c)
	}
	return unique
}

// SelectBest picks the single best candidate: local candidates always
// outrank remote ones, then higher similarity wins. Returns nil for an
// empty batch. Exact ties resolve to the first maximal element encountered.
func SelectBest(candidates []domain.Candidate) *domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterCandidate(c, best) {
			best = c
		}
	}
	return &best
}

func betterCandidate(a, b domain.Candidate) bool {
	if a.IsLocal != b.IsLocal {
		return a.IsLocal
	}
	return a.Similarity > b.Similarity
}
