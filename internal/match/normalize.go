// Package match implements track identity resolution: text normalization,
// similarity scoring between (artist, title) pairs, multi-query candidate
// aggregation and best-candidate selection.
package match

import (
	"regexp"
	"strings"
	"unicode"
)

// leetReplacer maps the symbol substitutions commonly seen in artist names
// ($ for s, € for e, @ for a) and smart quotes to their plain forms.
var leetReplacer = strings.NewReplacer(
	"$", "s",
	"€", "e",
	"@", "a",
	"“", `"`,
	"”", `"`,
)

// junkPhrases is the ordered list of promotional clutter removed from
// externally sourced video titles. Order matters: longer phrases first so
// that "official lyric video" is not left half-stripped by "lyrics".
var junkPhrases = []*regexp.Regexp{
	regexp.MustCompile(`[(\[]?official lyric video[)\]]?`),
	regexp.MustCompile(`[(\[]?official music video[)\]]?`),
	regexp.MustCompile(`[(\[]?official video[)\]]?`),
	regexp.MustCompile(`[(\[]?official audio[)\]]?`),
	regexp.MustCompile(`[(\[]?lyrics[)\]]?`),
	regexp.MustCompile(`[(\[]?visualizer[)\]]?`),
	regexp.MustCompile(`[(\[]?clip officiel[)\]]?`),
	regexp.MustCompile(`[(\[]?clip vid\x{00e9}o[)\]]?`),
	regexp.MustCompile(`[(\[]?audio officiel[)\]]?`),
	regexp.MustCompile(`[(\[]?paroles[)\]]?`),
	regexp.MustCompile(`[(\[]?letra[)\]]?`),
	regexp.MustCompile(`\(from.*?\)`),
	regexp.MustCompile(`[(\[]?audio[)\]]?`),
	regexp.MustCompile(`[(\[]?video[)\]]?`),
	regexp.MustCompile(`[(\[]?mv[)\]]?`),
	regexp.MustCompile(`\(hq\)`),
	regexp.MustCompile(`\(4k\)`),
	regexp.MustCompile(`\(live\)`),
}

var (
	// The word connectors need a trailing boundary so "Xylo" survives; "&"
	// is not a word character and gets its own branch.
	featuredRegex   = regexp.MustCompile(`(?i)\s*[(\[]?\s*(?:(?:ft\.?|feat\.?|featuring|vs\.?|x|with)\b|&).*`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, maps leet/smart-quote substitutions, strips every
// rune that is not a letter, digit or whitespace, and trims. It is pure and
// idempotent; empty input yields the empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = leetReplacer.Replace(strings.ToLower(text))
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StripJunkPhrases lowercases and removes bracketed promotional phrases
// (official video, lyrics, live, ...) from an externally sourced title,
// collapsing any whitespace the removal leaves behind. It must never be
// applied to nominal queries, only to video titles.
func StripJunkPhrases(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.NewReplacer("“", "", "”", "", `"`, "").Replace(text)
	cleaned = strings.ToLower(cleaned)
	for _, re := range junkPhrases {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(cleaned, " "))
}

// StripFeaturedArtists removes everything from the first connector token
// (ft, feat, featuring, vs, &, x, with), optionally preceded by an opening
// bracket, to the end of the string. Used both to build alternate search
// queries and to re-score candidates whose title embeds a featured clause.
func StripFeaturedArtists(artist string) string {
	if artist == "" {
		return ""
	}
	return strings.TrimSpace(featuredRegex.ReplaceAllString(artist, ""))
}

// StripPunctuation removes punctuation while preserving case. No junk-phrase
// or leet handling; this is the filename-comparison cleanup.
func StripPunctuation(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizeFilename keeps alphanumerics plus " .-_()" so artist and title can
// safely become path components.
func SanitizeFilename(name string) string {
	if name == "" {
		return "Unknown"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" .-_()", r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
