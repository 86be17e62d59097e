package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedhive/feedhive/app/comments"
	"github.com/feedhive/feedhive/app/database"
	"github.com/feedhive/feedhive/app/feed"
)

type fakeFeedRepo struct {
	metadataUpdates int
	lastTitle       string
	lastFeedType    string
}

func (r *fakeFeedRepo) GetFeed(feedName string) (*database.Feed, error) { return nil, nil }
func (r *fakeFeedRepo) GetFeedCount() (int, error)                      { return 0, nil }
func (r *fakeFeedRepo) UpsertFeed(feedName, feedURL string) error       { return nil }
func (r *fakeFeedRepo) UpdateFeedMetadata(feedName string, title string, link string, description string, imageURL string, language string, feedType string, feedPublishedAt *time.Time, nextFetch time.Time) error {
	r.metadataUpdates++
	r.lastTitle = title
	r.lastFeedType = feedType
	return nil
}

type fakeItemRepo struct {
	stored     []database.FeedItem
	duplicates map[string]bool
}

func (r *fakeItemRepo) GetVisibleItems(feedName string, limit int) ([]database.Item, error) {
	return nil, nil
}
func (r *fakeItemRepo) GetAllItems(feedName string) ([]database.Item, error) { return nil, nil }
func (r *fakeItemRepo) GetItemCount(feedName string) (int, error)            { return 0, nil }
func (r *fakeItemRepo) GetItemStats(feedName string) (int, int, int, error)  { return 0, 0, 0, nil }
func (r *fakeItemRepo) UpsertItem(feedName string, item database.FeedItem) error {
	r.stored = append(r.stored, item)
	return nil
}
func (r *fakeItemRepo) UpdateItemFilterStatus(itemID string, isFiltered bool, reason string) error {
	return nil
}
func (r *fakeItemRepo) CheckDuplicate(feedName, contentHash string) (bool, *string, error) {
	if r.duplicates[contentHash] {
		id := "existing"
		return true, &id, nil
	}
	return false, nil, nil
}
func (r *fakeItemRepo) GetItemsForExtraction(feedName string, limit int) ([]database.ItemForExtraction, error) {
	return nil, nil
}
func (r *fakeItemRepo) UpdateExtractionStatus(itemID string, status string, extractedAt *time.Time, errorMsg string) error {
	return nil
}
func (r *fakeItemRepo) UpdateExtractedContentAndStatus(itemID string, content string, status string, extractedAt *time.Time, errorMsg string) error {
	return nil
}

const processTestRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Process Test Feed</title>
    <link>https://example.com</link>
    <description>Feed for pipeline tests</description>
    <item>
      <title>Post With Comments</title>
      <link>https://example.com/post-1</link>
      <guid>post-1</guid>
      <comments>https://example.com/post-1#comments</comments>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>Post Without Comments</title>
      <link>https://example.com/post-2</link>
      <guid>post-2</guid>
      <pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newTestRegistry() *comments.Registry {
	registry := comments.NewRegistry()
	registry.Register(comments.NewCommentsElementExtractor())
	registry.Register(comments.NewWfwCommentExtractor())
	registry.Register(comments.NewJSONFeedExtractor())
	registry.Register(comments.NewDiscussionHostExtractor())
	return registry
}

func TestProcessFeedTaskStoresCommentURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(processTestRSS))
	}))
	defer server.Close()

	feedConfig := feed.NewRuntimeConfig("process-test", server.URL)
	feedRepo := &fakeFeedRepo{}
	itemRepo := &fakeItemRepo{duplicates: map[string]bool{}}

	task := NewProcessFeedTask("process-test", feedConfig, server.Client(), feed.NewParser(),
		feed.NewFilterer(), newTestRegistry(), feedRepo, itemRepo, nil, "FeedHive/test")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected task to succeed, got %v", err)
	}

	if feedRepo.metadataUpdates != 1 {
		t.Errorf("Expected 1 metadata update, got %d", feedRepo.metadataUpdates)
	}
	if feedRepo.lastTitle != "Process Test Feed" {
		t.Errorf("Expected feed title to be stored, got %q", feedRepo.lastTitle)
	}
	if feedRepo.lastFeedType != "rss" {
		t.Errorf("Expected feed type 'rss', got %q", feedRepo.lastFeedType)
	}

	if len(itemRepo.stored) != 2 {
		t.Fatalf("Expected 2 stored items, got %d", len(itemRepo.stored))
	}

	byGUID := map[string]database.FeedItem{}
	for _, item := range itemRepo.stored {
		byGUID[item.GUID] = item
	}

	withComments := byGUID["post-1"]
	if withComments.CommentURL != "https://example.com/post-1#comments" {
		t.Errorf("Expected comment URL from comments element, got %q", withComments.CommentURL)
	}
	if withComments.CommentSource != "rss-comments-element" {
		t.Errorf("Expected comment source 'rss-comments-element', got %q", withComments.CommentSource)
	}

	withoutComments := byGUID["post-2"]
	if withoutComments.CommentURL != "" {
		t.Errorf("Expected no comment URL, got %q", withoutComments.CommentURL)
	}
	if withoutComments.CommentSource != "" {
		t.Errorf("Expected no comment source, got %q", withoutComments.CommentSource)
	}
}

func TestProcessFeedTaskSkipsDuplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(processTestRSS))
	}))
	defer server.Close()

	feedConfig := feed.NewRuntimeConfig("process-test", server.URL)
	feedRepo := &fakeFeedRepo{}
	itemRepo := &fakeItemRepo{duplicates: map[string]bool{}}

	task := NewProcessFeedTask("process-test", feedConfig, server.Client(), feed.NewParser(),
		feed.NewFilterer(), newTestRegistry(), feedRepo, itemRepo, nil, "FeedHive/test")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected first run to succeed, got %v", err)
	}

	for _, item := range itemRepo.stored {
		itemRepo.duplicates[item.ContentHash] = true
	}
	itemRepo.stored = nil

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected second run to succeed, got %v", err)
	}

	if len(itemRepo.stored) != 0 {
		t.Errorf("Expected duplicates to be skipped, got %d stored items", len(itemRepo.stored))
	}
}

func TestProcessFeedTaskDisabledFeed(t *testing.T) {
	feedConfig := feed.NewRuntimeConfig("disabled-feed", "https://example.com/feed.xml")
	feedConfig.Settings.Enabled = false
	feedRepo := &fakeFeedRepo{}
	itemRepo := &fakeItemRepo{duplicates: map[string]bool{}}

	task := NewProcessFeedTask("disabled-feed", feedConfig, http.DefaultClient, feed.NewParser(),
		feed.NewFilterer(), newTestRegistry(), feedRepo, itemRepo, nil, "FeedHive/test")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected disabled feed to be a no-op, got %v", err)
	}

	if feedRepo.metadataUpdates != 0 || len(itemRepo.stored) != 0 {
		t.Error("Expected no repository writes for a disabled feed")
	}
}
