package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeValidator struct {
	feed  *DiscoveredFeed
	err   error
	calls []string
}

func (v *fakeValidator) Validate(_ context.Context, feedURL string) (*DiscoveredFeed, error) {
	v.calls = append(v.calls, feedURL)
	if v.err != nil {
		return nil, v.err
	}
	return v.feed, nil
}

func TestApplePodcastsCanHandle(t *testing.T) {
	service := NewApplePodcastsService(http.DefaultClient, &fakeValidator{}, nil, nil, "", time.Second)

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://podcasts.apple.com/us/podcast/the-show/id1234567890", true},
		{"https://apple.com/something", true},
		{"https://music.apple.com/us/album/id42", true},
		{"https://example.com/feed.xml", false},
		{"https://notapple.com/podcast", false},
		{"https://evil-apple.com.attacker.net/podcast", false},
		{"://bad url", false},
	}

	for _, test := range tests {
		if got := service.CanHandle(test.url); got != test.expected {
			t.Errorf("CanHandle(%q): expected %v, got %v", test.url, test.expected, got)
		}
	}
}

func TestExtractPodcastID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://podcasts.apple.com/us/podcast/the-show/id1234567890", "1234567890"},
		{"https://podcasts.apple.com/us/podcast/the-show/id1234567890?utm_source=x", "1234567890"},
		{"https://podcasts.apple.com/us/browse", ""},
		{"https://podcasts.apple.com/us/podcast/idless-show", ""},
	}

	for _, test := range tests {
		if got := extractPodcastID(test.url); got != test.expected {
			t.Errorf("extractPodcastID(%q): expected %q, got %q", test.url, test.expected, got)
		}
	}
}

func TestApplePodcastsDiscoverSuccess(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "1234567890" {
			t.Errorf("Expected lookup for id 1234567890, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"resultCount": 1,
			"results": [{
				"wrapperType": "track",
				"kind": "podcast",
				"feedUrl": "https://feeds.example.com/show.rss",
				"collectionName": "The Show",
				"artistName": "A Host",
				"artworkUrl600": "https://img.example.com/show.jpg"
			}]
		}`))
	}))
	defer lookup.Close()

	validator := &fakeValidator{feed: &DiscoveredFeed{
		URL:         "https://feeds.example.com/show.rss",
		Title:       "the show",
		Description: "From the feed itself",
		Type:        TypeRSS,
	}}

	service := NewApplePodcastsService(lookup.Client(), validator, nil, nil, lookup.URL, 5*time.Second)

	feeds, err := service.Discover(context.Background(), "https://podcasts.apple.com/us/podcast/the-show/id1234567890")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("Expected 1 feed, got %d", len(feeds))
	}

	feed := feeds[0]
	if feed.URL != "https://feeds.example.com/show.rss" {
		t.Errorf("Expected feed URL from lookup, got %q", feed.URL)
	}
	if feed.Title != "The Show" {
		t.Errorf("Expected platform title to win, got %q", feed.Title)
	}
	if feed.Description != "From the feed itself" {
		t.Errorf("Expected validator description to fill the gap, got %q", feed.Description)
	}
	if feed.IconURL != "https://img.example.com/show.jpg" {
		t.Errorf("Expected platform artwork, got %q", feed.IconURL)
	}
	if len(validator.calls) != 1 || validator.calls[0] != "https://feeds.example.com/show.rss" {
		t.Errorf("Expected validator called with feed URL, got %v", validator.calls)
	}
}

func TestApplePodcastsDiscoverNoResults(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultCount": 0, "results": []}`))
	}))
	defer lookup.Close()

	validator := &fakeValidator{}
	service := NewApplePodcastsService(lookup.Client(), validator, nil, nil, lookup.URL, 5*time.Second)

	feeds, err := service.Discover(context.Background(), "https://podcasts.apple.com/us/podcast/name/id1234567890")
	if err != nil {
		t.Fatalf("Expected no error for empty lookup, got %v", err)
	}
	if len(feeds) != 0 {
		t.Errorf("Expected no feeds for empty lookup, got %+v", feeds)
	}
	if len(validator.calls) != 0 {
		t.Errorf("Expected validator not to be called, got %v", validator.calls)
	}
}

func TestApplePodcastsDiscoverNonPodcastResult(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"resultCount": 1,
			"results": [{"wrapperType": "collection", "kind": "album", "collectionName": "An Album"}]
		}`))
	}))
	defer lookup.Close()

	service := NewApplePodcastsService(lookup.Client(), &fakeValidator{}, nil, nil, lookup.URL, 5*time.Second)

	feeds, err := service.Discover(context.Background(), "https://music.apple.com/us/album/an-album/id99")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 0 {
		t.Errorf("Expected no feeds for non-podcast result, got %+v", feeds)
	}
}

func TestApplePodcastsDiscoverValidationFailure(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"resultCount": 1,
			"results": [{"wrapperType": "track", "kind": "podcast", "feedUrl": "https://feeds.example.com/gone.rss"}]
		}`))
	}))
	defer lookup.Close()

	validator := &fakeValidator{err: errors.New("feed is gone")}
	service := NewApplePodcastsService(lookup.Client(), validator, nil, nil, lookup.URL, 5*time.Second)

	feeds, err := service.Discover(context.Background(), "https://podcasts.apple.com/us/podcast/gone/id55")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 0 {
		t.Errorf("Expected no feeds when validation fails, got %+v", feeds)
	}
}

func TestApplePodcastsDiscoverNoPodcastID(t *testing.T) {
	service := NewApplePodcastsService(http.DefaultClient, &fakeValidator{}, nil, nil, "http://unused.invalid", time.Second)

	feeds, err := service.Discover(context.Background(), "https://podcasts.apple.com/us/browse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 0 {
		t.Errorf("Expected no feeds without a podcast ID, got %+v", feeds)
	}
}

type memoryLookupCache struct {
	store map[string]string
	sets  int
	gets  int
}

func (c *memoryLookupCache) Get(key string) (string, error) {
	c.gets++
	return c.store[key], nil
}

func (c *memoryLookupCache) Set(key string, value interface{}, _ time.Duration) error {
	c.sets++
	c.store[key] = value.(string)
	return nil
}

func TestApplePodcastsLookupUsesCache(t *testing.T) {
	requests := 0
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{
			"resultCount": 1,
			"results": [{"wrapperType": "track", "kind": "podcast", "feedUrl": "https://feeds.example.com/show.rss", "collectionName": "The Show"}]
		}`))
	}))
	defer lookup.Close()

	cache := &memoryLookupCache{store: map[string]string{}}
	validator := &fakeValidator{feed: &DiscoveredFeed{URL: "https://feeds.example.com/show.rss", Type: TypeRSS}}
	service := NewApplePodcastsService(lookup.Client(), validator, nil, cache, lookup.URL, 5*time.Second)

	pageURL := "https://podcasts.apple.com/us/podcast/the-show/id1234567890"
	for i := 0; i < 2; i++ {
		if _, err := service.Discover(context.Background(), pageURL); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if requests != 1 {
		t.Errorf("Expected 1 upstream lookup, got %d", requests)
	}
	if cache.sets != 1 {
		t.Errorf("Expected 1 cache write, got %d", cache.sets)
	}
}
