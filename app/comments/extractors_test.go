package comments

import (
	"testing"

	"github.com/feedhive/feedhive/app/feed"
)

func TestCommentsElementExtractor(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewCommentsElementExtractor())

	item := &feed.Item{
		GUID:        "g",
		Link:        "https://example.com/post",
		CommentsURL: "https://news.ycombinator.com/item?id=12345",
	}

	result := registry.Extract(item)
	if result == nil {
		t.Fatal("Expected a result")
	}
	if result.URL != "https://news.ycombinator.com/item?id=12345" {
		t.Errorf("Unexpected URL: %s", result.URL)
	}
	if result.Source != "rss-comments-element" {
		t.Errorf("Unexpected source: %s", result.Source)
	}
}

func TestCommentsElementExtractor_NoElement(t *testing.T) {
	extractor := NewCommentsElementExtractor()

	if extractor.CanHandle(&feed.Item{Link: "https://example.com/post"}) {
		t.Error("CanHandle should be false without a comments element")
	}
}

func TestWfwCommentExtractor(t *testing.T) {
	extractor := NewWfwCommentExtractor()

	item := &feed.Item{
		Extensions: map[string]map[string][]string{
			"wfw": {
				"commentRss": {"https://example.com/post/comments/feed"},
			},
		},
	}

	if !extractor.CanHandle(item) {
		t.Fatal("Expected CanHandle to be true for wfw extension")
	}

	result, err := extractor.Extract(item)
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.URL != "https://example.com/post/comments/feed" {
		t.Errorf("Unexpected result: %v", result)
	}
	if result.Source != "wfw-comment-rss" {
		t.Errorf("Unexpected source: %s", result.Source)
	}
}

func TestJSONFeedExtractor(t *testing.T) {
	extractor := NewJSONFeedExtractor()

	// url points at the aggregator's page, external_url at the article
	item := &feed.Item{
		Link:        "https://news.ycombinator.com/item?id=67890",
		ExternalURL: "https://example.com/article",
	}

	if !extractor.CanHandle(item) {
		t.Fatal("Expected CanHandle to be true")
	}

	result, err := extractor.Extract(item)
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.URL != "https://news.ycombinator.com/item?id=67890" {
		t.Errorf("Unexpected result: %v", result)
	}
}

func TestJSONFeedExtractor_SameURL(t *testing.T) {
	extractor := NewJSONFeedExtractor()

	item := &feed.Item{
		Link:        "https://example.com/article",
		ExternalURL: "https://example.com/article",
	}

	result, err := extractor.Extract(item)
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Errorf("Expected no result when url equals external_url, got %v", result)
	}
}

func TestDiscussionHostExtractor(t *testing.T) {
	extractor := NewDiscussionHostExtractor()

	cases := []struct {
		link     string
		expected bool
	}{
		{"https://news.ycombinator.com/item?id=1", true},
		{"https://lobste.rs/s/abc123", true},
		{"https://www.reddit.com/r/golang/comments/abc/", true},
		{"https://example.com/blog/post", false},
	}

	for _, c := range cases {
		result, err := extractor.Extract(&feed.Item{Link: c.link})
		if err != nil {
			t.Fatal(err)
		}
		if (result != nil) != c.expected {
			t.Errorf("Link %s: expected match=%t, got %v", c.link, c.expected, result)
		}
		if result != nil && result.URL != c.link {
			t.Errorf("Link %s: expected the link itself, got %s", c.link, result.URL)
		}
	}
}

func TestDefaultChainPrefersCommentsElement(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewDiscussionHostExtractor())
	registry.Register(NewJSONFeedExtractor())
	registry.Register(NewWfwCommentExtractor())
	registry.Register(NewCommentsElementExtractor())

	item := &feed.Item{
		Link:        "https://news.ycombinator.com/item?id=67890",
		ExternalURL: "https://example.com/article",
		CommentsURL: "https://example.com/article#comments",
	}

	result := registry.Extract(item)
	if result == nil {
		t.Fatal("Expected a result")
	}
	if result.Source != "rss-comments-element" {
		t.Errorf("Expected the comments element to win, got source %s", result.Source)
	}
}
