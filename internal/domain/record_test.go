package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueTrackIDsPreservesFirstOccurrenceOrder(t *testing.T) {
	record := &GenerationRecord{AllTrackIDs: []string{"b", "a", "b", "c", "a"}}
	assert.Equal(t, []string{"b", "a", "c"}, record.UniqueTrackIDs())
}

func TestAlreadyLocalIDs(t *testing.T) {
	record := &GenerationRecord{AlreadyLocal: []Candidate{{ID: "x"}, {ID: "y"}}}
	assert.Equal(t, []string{"x", "y"}, record.AlreadyLocalIDs())
}

func TestLegacyRecordWithoutOnTheFly(t *testing.T) {
	payload := `{"playlist_name":"w","subsonic_downloaded":["a"],"youtube_downloaded":[],"all_tracks_ids":["a"],"not_found":[],"already_local":[]}`

	var record GenerationRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &record))
	record.ApplyDefaults()

	assert.NotNil(t, record.OnTheFly)
	assert.Empty(t, record.OnTheFly)
}

func TestRecordRoundTrip(t *testing.T) {
	record := NewGenerationRecord("2026-08-24 Weekly Discovery")
	record.SubsonicDownloaded = append(record.SubsonicDownloaded, "s1")
	record.YouTubeDownloaded = append(record.YouTubeDownloaded, "y1")
	record.AllTrackIDs = append(record.AllTrackIDs, "s1", "y1", "l1")
	record.NotFound = append(record.NotFound, TrackQuery{Artist: "A", Title: "T"})
	record.AlreadyLocal = append(record.AlreadyLocal, Candidate{ID: "l1", IsLocal: true, Similarity: 0.93})

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var loaded GenerationRecord
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, record.PlaylistName, loaded.PlaylistName)
	assert.Equal(t, record.AllTrackIDs, loaded.AllTrackIDs)
	assert.Equal(t, record.AlreadyLocal, loaded.AlreadyLocal)
	assert.Equal(t, record.NotFound, loaded.NotFound)
}
