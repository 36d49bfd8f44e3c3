package match

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Scoring thresholds. Titles must clear a minimum bar on their own; artists
// below the artist floor only survive via the substring rescue.
const (
	titleFloor          = 55
	artistFloor         = 70
	substringRescue     = 85
	shortArtistMaxLen   = 4
	collabBoostScore    = 0.85
	collabBoostMinScore = 0.60
)

var levenshtein = metrics.NewLevenshtein()

// ratio is a 0-100 normalized edit-distance similarity.
func ratio(a, b string) int {
	return int(math.Round(strutil.Similarity(a, b, levenshtein) * 100))
}

// tokenSortRatio compares two strings independent of token order: tokens are
// sorted and rejoined before the ratio is taken.
func tokenSortRatio(a, b string) int {
	return ratio(sortTokens(a), sortTokens(b))
}

// TokenSetRatio is intersection-over-union of the two token sets, 0-100.
// Used for the loosest comparisons (short filename targets).
func TokenSetRatio(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	union := make(map[string]struct{}, len(setA)+len(setB))
	common := 0
	for tok := range setA {
		union[tok] = struct{}{}
	}
	for tok := range setB {
		union[tok] = struct{}{}
	}
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common++
		}
	}
	return int(math.Round(float64(common) / float64(len(union)) * 100))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Similarity computes a bounded [0,1] confidence that the query and candidate
// (artist, title) pairs denote the same recording.
//
// Both sides go through Normalize, so the function is symmetric by
// construction; it is not commutative with respect to which string is the
// query when callers pre-clean only one side.
func Similarity(queryArtist, queryTitle, candidateArtist, candidateTitle string) float64 {
	qa := Normalize(queryArtist)
	qt := Normalize(queryTitle)
	ca := Normalize(candidateArtist)
	ct := Normalize(candidateTitle)

	if qt == "" || ct == "" {
		return 0
	}

	titleScore := tokenSortRatio(qt, ct)
	if titleScore < titleFloor {
		return 0
	}

	artistScore := tokenSortRatio(qa, ca)

	// Short artist names ("Leto") produce false positives under generic
	// fuzzy ratios, so they require near-exact equality.
	if utf8.RuneCountInString(qa) <= shortArtistMaxLen || utf8.RuneCountInString(ca) <= shortArtistMaxLen {
		if artistScore < 100 && qa != ca {
			return 0
		}
	}

	if artistScore < artistFloor {
		if (utf8.RuneCountInString(qa) > 3 && strings.Contains(ca, qa)) ||
			(utf8.RuneCountInString(ca) > 3 && strings.Contains(qa, ca)) {
			artistScore = substringRescue
		} else {
			return 0
		}
	}

	score := float64(artistScore+titleScore) / 2 / 100
	return math.Min(1, math.Max(0, score))
}

// BoostedSimilarity is the aggregator's scoring variant. On top of the base
// score it retries with the candidate title's featured-artist clause stripped
// and keeps the higher result, then raises the score to at least 0.85 when
// the query artist is contained in the candidate artist (collaborations
// billed as "A & B" where the query only named "A").
func BoostedSimilarity(queryArtist, queryTitle, candidateArtist, candidateTitle string) float64 {
	score := Similarity(queryArtist, queryTitle, candidateArtist, candidateTitle)

	if cleaned := StripFeaturedArtists(candidateTitle); cleaned != candidateTitle {
		if rescored := Similarity(queryArtist, queryTitle, candidateArtist, cleaned); rescored > score {
			score = rescored
		}
	}

	cleanQuery := strings.ToLower(StripFeaturedArtists(queryArtist))
	cleanCandidate := strings.ToLower(StripFeaturedArtists(candidateArtist))
	if cleanQuery != "" && strings.Contains(cleanCandidate, cleanQuery) && score > collabBoostMinScore {
		score = math.Max(score, collabBoostScore)
	}

	return score
}
