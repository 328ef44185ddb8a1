package discord

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// negativeCacheTTL is how long a failed lookup is remembered before
// the API is asked again.
const negativeCacheTTL = 10 * time.Minute

// artworkLookup fetches album artwork URLs from the iTunes Search API
// and caches results to avoid repeated lookups for the same track.
type artworkLookup struct {
	mu       sync.Mutex
	cache    map[string]artworkEntry
	client   *http.Client
	endpoint string
	now      func() time.Time
}

type artworkEntry struct {
	url     string
	fetched time.Time
}

func newArtworkLookup() *artworkLookup {
	return &artworkLookup{
		cache: make(map[string]artworkEntry),
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
		endpoint: "https://itunes.apple.com/search",
		now:      time.Now,
	}
}

type itunesResponse struct {
	Results []itunesResult `json:"results"`
}

type itunesResult struct {
	ArtworkURL100 string `json:"artworkUrl100"`
}

// Lookup returns an artwork URL for the given artist and title.
// Returns empty string on any failure; artwork is optional.
func (a *artworkLookup) Lookup(artist, title string) string {
	key := artist + "|" + title
	a.mu.Lock()
	entry, ok := a.cache[key]
	a.mu.Unlock()
	if ok && (entry.url != "" || a.now().Sub(entry.fetched) < negativeCacheTTL) {
		return entry.url
	}

	artURL := a.fetch(artist, title)

	a.mu.Lock()
	a.cache[key] = artworkEntry{url: artURL, fetched: a.now()}
	a.mu.Unlock()

	return artURL
}

func (a *artworkLookup) fetch(artist, title string) string {
	query := url.Values{
		"term":   {strings.TrimSpace(artist + " " + title)},
		"entity": {"song"},
		"limit":  {"1"},
	}
	resp, err := a.client.Get(fmt.Sprintf("%s?%s", a.endpoint, query.Encode()))
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var result itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	if len(result.Results) == 0 || result.Results[0].ArtworkURL100 == "" {
		return ""
	}

	// Upscale from 100x100 to 600x600 for better quality
	return strings.Replace(result.Results[0].ArtworkURL100, "100x100bb", "600x600bb", 1)
}
