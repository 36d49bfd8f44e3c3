package video

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTitleSeparatorSplit(t *testing.T) {
	interp, ok := ResolveTitle("Daft Punk - One More Time (Official Video)", "SomeChannel", "Daft Punk", "One More Time")
	require.True(t, ok)
	assert.Equal(t, "daft punk", interp.Artist)
	assert.Equal(t, "one more time", interp.Title)
	assert.InDelta(t, 1.0, interp.Score, 0.001)
}

func TestResolveTitleReversedOrdering(t *testing.T) {
	interp, ok := ResolveTitle("One More Time - Daft Punk", "SomeChannel", "Daft Punk", "One More Time")
	require.True(t, ok)
	assert.Equal(t, "daft punk", interp.Artist)
	assert.Equal(t, "one more time", interp.Title)
}

func TestResolveTitleUploaderAsArtist(t *testing.T) {
	interp, ok := ResolveTitle("One More Time (Official Audio)", "Daft Punk", "Daft Punk", "One More Time")
	require.True(t, ok)
	assert.Equal(t, "Daft Punk", interp.Artist)
	assert.Equal(t, "one more time", interp.Title)
}

func TestResolveTitleNoReading(t *testing.T) {
	_, ok := ResolveTitle("Cooking Pasta At Home", "FoodTube", "Daft Punk", "One More Time")
	assert.False(t, ok)
}

type fakeVideoProvider struct {
	entries []Entry
	err     error
	calls   int
}

func (f *fakeVideoProvider) SearchVideos(_ context.Context, _ string, _ int) ([]Entry, error) {
	f.calls++
	return f.entries, f.err
}

func TestFindBestMatchSelectsConfidentEntry(t *testing.T) {
	provider := &fakeVideoProvider{
		entries: []Entry{
			{ID: "bad", Title: "Unrelated Travel Vlog", Uploader: "Traveler"},
			{ID: "good", Title: "Daft Punk - One More Time (Official Video)", Uploader: "DaftPunkVEVO"},
		},
	}
	searcher := NewSearcher(provider, 10)

	m, err := searcher.FindBestMatch(context.Background(), "Daft Punk", "One More Time")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "good", m.ID)
	assert.GreaterOrEqual(t, m.Score, ScoreFloor)
	assert.Equal(t, "Daft Punk - One More Time (Official Video)", m.SourceTitle)
}

func TestFindBestMatchNothingClearsFloor(t *testing.T) {
	provider := &fakeVideoProvider{
		entries: []Entry{
			{ID: "bad", Title: "Unrelated Travel Vlog", Uploader: "Traveler"},
		},
	}
	searcher := NewSearcher(provider, 10)

	m, err := searcher.FindBestMatch(context.Background(), "Daft Punk", "One More Time")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestFindBestMatchFailsFastOnProviderError(t *testing.T) {
	provider := &fakeVideoProvider{err: errors.New("quota exceeded")}
	searcher := NewSearcher(provider, 10)

	m, err := searcher.FindBestMatch(context.Background(), "Daft Punk", "One More Time")
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, 1, provider.calls)
}
