package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const resultsURL = "https://www.youtube.com/results"

// YouTubeClient searches the public YouTube catalog by scraping the results
// page. The search payload lives in the ytInitialData blob embedded in a
// script tag, so the page is parsed with goquery and the blob decoded as
// JSON.
type YouTubeClient struct {
	httpClient *http.Client
}

func NewYouTubeClient(httpClient *http.Client) *YouTubeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTubeClient{httpClient: httpClient}
}

// SearchVideos implements SearchProvider.
func (c *YouTubeClient) SearchVideos(ctx context.Context, query string, limit int) ([]Entry, error) {
	searchURL := fmt.Sprintf("%s?search_query=%s", resultsURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	payload := findInitialData(doc)
	if payload == "" {
		return nil, fmt.Errorf("no ytInitialData found in search results")
	}

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to decode search payload: %w", err)
	}

	var entries []Entry
	collectVideoRenderers(data, &entries, limit)
	return entries, nil
}

func findInitialData(doc *goquery.Document) string {
	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, "ytInitialData")
		if idx < 0 {
			return true
		}
		start := strings.Index(text[idx:], "{")
		if start < 0 {
			return true
		}
		end := strings.LastIndex(text, "}")
		if end < idx+start {
			return true
		}
		payload = text[idx+start : end+1]
		return false
	})
	return payload
}

// collectVideoRenderers walks the decoded ytInitialData tree and gathers
// videoRenderer nodes up to the limit. The tree layout shifts regularly, so
// a structural walk is more robust than fixed paths.
func collectVideoRenderers(node any, entries *[]Entry, limit int) {
	if len(*entries) >= limit {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		if renderer, ok := v["videoRenderer"].(map[string]any); ok {
			if entry, ok := parseVideoRenderer(renderer); ok {
				*entries = append(*entries, entry)
				if len(*entries) >= limit {
					return
				}
			}
		}
		for _, child := range v {
			collectVideoRenderers(child, entries, limit)
		}
	case []any:
		for _, child := range v {
			collectVideoRenderers(child, entries, limit)
		}
	}
}

func parseVideoRenderer(renderer map[string]any) (Entry, bool) {
	id, _ := renderer["videoId"].(string)
	if id == "" {
		return Entry{}, false
	}
	return Entry{
		ID:       id,
		Title:    firstRunText(renderer["title"]),
		Uploader: firstRunText(renderer["ownerText"]),
	}, true
}

func firstRunText(node any) string {
	m, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	runs, ok := m["runs"].([]any)
	if !ok || len(runs) == 0 {
		return ""
	}
	run, ok := runs[0].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := run["text"].(string)
	return text
}
