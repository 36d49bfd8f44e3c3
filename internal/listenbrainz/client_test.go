package listenbrainz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentWeekly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/user/alice/playlists/createdfor", r.URL.Path)
		fmt.Fprint(w, `{"playlists":[
			{"playlist":{"identifier":"https://listenbrainz.org/playlist/abc-123","date":"2026-08-24T00:00:00Z"}},
			{"playlist":{"identifier":"https://listenbrainz.org/playlist/old-456","date":"2026-08-17T00:00:00Z"}}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "alice")
	info, err := client.CurrentWeekly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc-123", info.MBID)
	assert.Equal(t, "2026-08-24 Weekly Discovery", info.Name)
}

func TestCurrentWeeklyNoPlaylists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"playlists":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "alice")
	_, err := client.CurrentWeekly(context.Background())
	require.Error(t, err)
}

func TestCurrentWeeklyBadDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"playlists":[{"playlist":{"identifier":"x/p1","date":"not-a-date"}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "alice")
	_, err := client.CurrentWeekly(context.Background())
	require.Error(t, err)
}

func TestTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/playlist/abc-123", r.URL.Path)
		fmt.Fprint(w, `{"playlist":{"track":[
			{"creator":"Daft Punk","title":"One More Time","album":"Discovery"},
			{"creator":"Jungle","title":"Busy Earnin'"}
		]}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "alice")
	tracks, err := client.Tracks(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Daft Punk", tracks[0].Artist)
	assert.Equal(t, "Discovery", tracks[0].Album)
	assert.Empty(t, tracks[1].Album)
}

func TestTracksServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "alice")
	_, err := client.Tracks(context.Background(), "abc-123")
	require.Error(t, err)
}
