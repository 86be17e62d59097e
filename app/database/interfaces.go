package database

import (
	"time"
)

// FeedItem is the processed item handed to the repository for storage.
type FeedItem struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt time.Time
	UpdatedAt   *time.Time
	Authors     []string
	Categories  []string

	CommentURL    string
	CommentSource string

	ContentHash     string
	IsFiltered      bool
	FilterReason    string
	EnclosureURL    string
	EnclosureLength int64
	EnclosureType   string
}

type FeedRepository interface {
	GetFeed(feedName string) (*Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(feedName, feedURL string) error
	UpdateFeedMetadata(feedName string, title string, link string, description string, imageURL string, language string, feedType string, feedPublishedAt *time.Time, nextFetch time.Time) error
}

type ItemForExtraction struct {
	ID   string
	Link string
}

type ItemRepository interface {
	GetVisibleItems(feedName string, limit int) ([]Item, error)
	GetAllItems(feedName string) ([]Item, error)
	GetItemCount(feedName string) (int, error)
	GetItemStats(feedName string) (int, int, int, error)

	UpsertItem(feedName string, item FeedItem) error
	UpdateItemFilterStatus(itemID string, isFiltered bool, reason string) error

	CheckDuplicate(feedName, contentHash string) (bool, *string, error)

	GetItemsForExtraction(feedName string, limit int) ([]ItemForExtraction, error)
	UpdateExtractionStatus(itemID string, status string, extractedAt *time.Time, errorMsg string) error
	UpdateExtractedContentAndStatus(itemID string, content string, status string, extractedAt *time.Time, errorMsg string) error
}
