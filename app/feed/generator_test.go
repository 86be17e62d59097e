package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/feedhive/feedhive/app/cfg"
	"github.com/feedhive/feedhive/app/database"
)

func setupTestConfig() {
	cfg.Set(&cfg.Cfg{
		Port:    "8080",
		Version: "test",
	})
}

func TestGenerateRSS(t *testing.T) {
	setupTestConfig()
	generator := NewGenerator()

	feedPublishedTime := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	feed := database.Feed{
		ID:              "test-feed-uuid",
		Name:            "test-feed",
		Title:           "Test Feed",
		Link:            "https://example.com",
		FeedURL:         "https://example.com/feed.xml",
		FeedPublishedAt: &feedPublishedTime,
	}

	publishedTime := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)

	items := []database.Item{
		{
			ID:          "item-1-uuid",
			FeedID:      "test-feed-uuid",
			GUID:        "item-1",
			Title:       "Test Item 1",
			Link:        "https://example.com/item1",
			Description: "Test Item 1 Description",
			PublishedAt: publishedTime,
			Authors:     []string{"test@example.com (Test Author)"},
			Categories:  []string{"Technology"},
			CommentURL:  "https://news.ycombinator.com/item?id=12345",
		},
		{
			ID:          "item-2-uuid",
			FeedID:      "test-feed-uuid",
			GUID:        "https://example.com/item2",
			Title:       "Test Item 2",
			Link:        "https://example.com/item2",
			PublishedAt: publishedTime,
		},
	}

	rss, err := generator.Run(feed, items)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectations := []string{
		`<rss version="2.0"`,
		"<title>Test Feed</title>",
		"<link>https://example.com</link>",
		"<title>Test Item 1</title>",
		"<comments>https://news.ycombinator.com/item?id=12345</comments>",
		`<guid isPermaLink="false">item-1</guid>`,
		`<guid isPermaLink="true">https://example.com/item2</guid>`,
		"<category>Technology</category>",
	}

	for _, expected := range expectations {
		if !strings.Contains(rss, expected) {
			t.Errorf("Expected RSS to contain %q", expected)
		}
	}

	// Items without a comment link must not emit an empty element
	if strings.Count(rss, "<comments>") != 1 {
		t.Errorf("Expected exactly one <comments> element, got %d", strings.Count(rss, "<comments>"))
	}
}

func TestGenerateRSS_EscapesContent(t *testing.T) {
	setupTestConfig()
	generator := NewGenerator()

	feed := database.Feed{
		Name:    "test-feed",
		Title:   "Feed <with> & special",
		Link:    "https://example.com",
		FeedURL: "https://example.com/feed.xml",
	}

	rss, err := generator.Run(feed, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, "Feed &lt;with&gt; &amp; special") {
		t.Errorf("Expected XML-escaped title, got: %s", rss)
	}
}
