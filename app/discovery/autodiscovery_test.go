package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// validatorByURL validates only the URLs it was configured with.
type validatorByURL struct {
	feeds map[string]*DiscoveredFeed
	calls []string
}

func (v *validatorByURL) Validate(_ context.Context, feedURL string) (*DiscoveredFeed, error) {
	v.calls = append(v.calls, feedURL)
	if feed, ok := v.feeds[feedURL]; ok {
		return feed, nil
	}
	return nil, fmt.Errorf("not a feed: %s", feedURL)
}

func TestAutodiscoveryCanHandle(t *testing.T) {
	service := NewAutodiscoveryService(http.DefaultClient, &fakeValidator{}, nil, "FeedHive/test", time.Second)

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/blog", true},
		{"http://example.com", true},
		{"ftp://example.com/feed.xml", false},
		{"/relative/path", false},
		{"not a url at all", false},
	}

	for _, test := range tests {
		if got := service.CanHandle(test.url); got != test.expected {
			t.Errorf("CanHandle(%q): expected %v, got %v", test.url, test.expected, got)
		}
	}
}

func TestAutodiscoveryDirectFeedURL(t *testing.T) {
	validator := &validatorByURL{feeds: map[string]*DiscoveredFeed{
		"https://example.com/feed.xml": {URL: "https://example.com/feed.xml", Title: "Direct", Type: TypeRSS},
	}}
	service := NewAutodiscoveryService(http.DefaultClient, validator, nil, "FeedHive/test", time.Second)

	feeds, err := service.Discover(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 1 || feeds[0].Title != "Direct" {
		t.Fatalf("Expected the URL itself to validate, got %+v", feeds)
	}
	if len(validator.calls) != 1 {
		t.Errorf("Expected no further strategies after direct hit, got calls %v", validator.calls)
	}
}

func TestAutodiscoveryFromHTMLLinks(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
  <title>A Blog</title>
  <link rel="alternate" type="application/rss+xml" href="/Feed/?utm_source=header">
  <link rel="alternate" type="application/rss+xml" href="/Feed/">
  <link rel="alternate" type="application/atom+xml" href="/atom.xml">
  <link rel="alternate" type="text/css" href="/styles.css">
  <link rel="stylesheet" href="/other.css">
</head>
<body>posts</body>
</html>`)
	}))
	defer page.Close()

	rssURL := page.URL + "/Feed"
	atomURL := page.URL + "/atom.xml"
	validator := &validatorByURL{feeds: map[string]*DiscoveredFeed{
		rssURL:  {URL: rssURL, Title: "RSS", Type: TypeRSS},
		atomURL: {URL: atomURL, Title: "Atom", Type: TypeAtom},
	}}
	service := NewAutodiscoveryService(page.Client(), validator, nil, "FeedHive/test", 5*time.Second)

	feeds, err := service.Discover(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %+v", feeds)
	}
	if feeds[0].URL != rssURL || feeds[1].URL != atomURL {
		t.Errorf("Expected feeds in document order [%q %q], got %+v", rssURL, atomURL, feeds)
	}

	// Both declared RSS links normalize to the same URL, so the validator
	// sees it once (plus the initial direct attempt and the atom link).
	rssValidations := 0
	for _, call := range validator.calls {
		if call == rssURL {
			rssValidations++
		}
	}
	if rssValidations != 1 {
		t.Errorf("Expected duplicate links collapsed to 1 validation, got %d", rssValidations)
	}
}

func TestAutodiscoveryFallsBackToCommonPaths(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>No feeds declared</title></head><body></body></html>`)
	}))
	defer page.Close()

	feedURL := page.URL + "/feed.xml"
	validator := &validatorByURL{feeds: map[string]*DiscoveredFeed{
		feedURL: {URL: feedURL, Title: "Probed", Type: TypeRSS},
	}}
	service := NewAutodiscoveryService(page.Client(), validator, nil, "FeedHive/test", 5*time.Second)

	feeds, err := service.Discover(context.Background(), page.URL+"/some/deep/page")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 1 || feeds[0].Title != "Probed" {
		t.Fatalf("Expected common-path probe to find the feed, got %+v", feeds)
	}
}

func TestAutodiscoveryNothingFound(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head></head><body>nothing here</body></html>`)
	}))
	defer page.Close()

	validator := &validatorByURL{feeds: map[string]*DiscoveredFeed{}}
	service := NewAutodiscoveryService(page.Client(), validator, nil, "FeedHive/test", 5*time.Second)

	feeds, err := service.Discover(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(feeds) != 0 {
		t.Errorf("Expected no feeds, got %+v", feeds)
	}
}
