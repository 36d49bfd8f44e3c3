package video

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><head>
<script>var something = 1;</script>
<script>var ytInitialData = {"contents":{"sectionList":[
  {"videoRenderer":{"videoId":"vid1","title":{"runs":[{"text":"Daft Punk - One More Time"}]},"ownerText":{"runs":[{"text":"DaftPunkVEVO"}]}}},
  {"videoRenderer":{"videoId":"vid2","title":{"runs":[{"text":"Daft Punk - Aerodynamic"}]},"ownerText":{"runs":[{"text":"DaftPunkVEVO"}]}}},
  {"videoRenderer":{"title":{"runs":[{"text":"broken, no id"}]}}}
]}};</script>
</head><body></body></html>`

func newSearchTestClient(t *testing.T, handler http.HandlerFunc) *YouTubeClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Rewrite every outgoing request to the test server.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	return NewYouTubeClient(&http.Client{
		Transport: rewriteTransport{base: transport, host: serverURL.Host},
	})
}

type rewriteTransport struct {
	base http.RoundTripper
	host string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = rt.host
	return rt.base.RoundTrip(req)
}

func TestSearchVideosParsesRenderers(t *testing.T) {
	var gotQuery string
	client := newSearchTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		fmt.Fprint(w, searchPage)
	})

	entries, err := client.SearchVideos(context.Background(), "daft punk one more time", 10)
	require.NoError(t, err)
	assert.Equal(t, "daft punk one more time", gotQuery)
	require.Len(t, entries, 2)
	assert.Equal(t, "vid1", entries[0].ID)
	assert.Equal(t, "Daft Punk - One More Time", entries[0].Title)
	assert.Equal(t, "DaftPunkVEVO", entries[0].Uploader)
}

func TestSearchVideosHonorsLimit(t *testing.T) {
	client := newSearchTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage)
	})

	entries, err := client.SearchVideos(context.Background(), "daft punk", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSearchVideosNoInitialData(t *testing.T) {
	client := newSearchTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	})

	_, err := client.SearchVideos(context.Background(), "daft punk", 10)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ytInitialData"))
}

func TestSearchVideosServerError(t *testing.T) {
	client := newSearchTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.SearchVideos(context.Background(), "daft punk", 10)
	require.Error(t, err)
}
