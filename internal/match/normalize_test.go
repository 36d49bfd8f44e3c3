package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"lowercases", "HELLO World", "hello world"},
		{"leet substitutions", "Ke$ha", "kesha"},
		{"euro and at signs", "€xample @rtist", "example artist"},
		{"strips punctuation", "don't-stop!", "dontstop"},
		{"keeps underscores", "a_b", "a_b"},
		{"keeps digits", "Blink 182", "blink 182"},
		{"trims whitespace", "  spaced out  ", "spaced out"},
		{"unicode letters survive", "Björk", "björk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Ke$ha", "  Don't Stop  ", "Björk & Friends", "already clean"}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "normalizing twice must equal normalizing once for %q", input)
	}
}

func TestStripJunkPhrases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"official video", "Song Name (Official Video)", "song name"},
		{"official audio bracketed", "Song Name [Official Video]", "song name"},
		{"lyrics", "Song Name (Lyrics)", "song name"},
		{"from phrase", `Cool Song (From "Some Movie")`, "cool song"},
		{"french clip", "Titre (Clip Officiel)", "titre"},
		{"collapses whitespace", "Song  (Official Video)  Extra", "song extra"},
		{"no junk untouched", "Plain Title", "plain title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripJunkPhrases(tt.input))
		})
	}
}

func TestStripJunkPhrasesKeepsBareWords(t *testing.T) {
	// hq, 4k and live are only junk inside parentheses; stripping the bare
	// words would mangle titles that legitimately contain them.
	assert.Equal(t, "stayin alive", StripJunkPhrases("Stayin Alive (HQ)"))
	assert.Equal(t, "song name live", StripJunkPhrases("Song Name Live"))
	assert.Equal(t, "4k magic", StripJunkPhrases("4K Magic"))
}

func TestStripFeaturedArtists(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"feat", "Artist feat. Other", "Artist"},
		{"ft", "Artist ft Other", "Artist"},
		{"featuring", "Artist featuring Other", "Artist"},
		{"parenthesised", "Artist (feat. Other)", "Artist"},
		{"ampersand", "Artist & Other", "Artist"},
		{"x connector", "Artist x Other", "Artist"},
		{"vs", "Artist vs. Other", "Artist"},
		{"with", "Artist with Other", "Artist"},
		{"no connector untouched", "Lone Artist", "Lone Artist"},
		{"x inside word untouched", "Xylo", "Xylo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFeaturedArtists(tt.input))
		})
	}
}

func TestStripPunctuation(t *testing.T) {
	assert.Equal(t, "Dont Stop", StripPunctuation("Don't Stop!"))
	assert.Equal(t, "CASE Kept", StripPunctuation("CASE: Kept."))
	assert.Equal(t, "", StripPunctuation("!!!"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "Unknown"},
		{"slash removed", "AC/DC", "ACDC"},
		{"keeps allowed set", "Track (Live) - Mix_1.0", "Track (Live) - Mix_1.0"},
		{"strips quotes", `A "B" C`, "A B C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}
