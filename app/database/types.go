package database

import (
	"time"
)

type Feed struct {
	ID              string // Database UUID
	Name            string // Feed identifier, from config filename or subscription
	FeedURL         string // Normalized source feed URL
	Link            string // Homepage URL from feed's <link> element
	Title           string
	Description     string
	ImageURL        string
	Language        string
	FeedType        string // rss, atom, rdf or json
	LastFetchedAt   *time.Time
	NextFetchAt     *time.Time
	FeedPublishedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time // Tracks last successful processing
}

type Item struct {
	ID                      string
	FeedID                  string
	GUID                    string
	Link                    string
	Title                   string
	Description             string
	Content                 string
	PublishedAt             time.Time
	UpdatedAt               *time.Time
	Authors                 []string // Multiple authors in format "email (name)" or "name"
	Categories              []string
	CommentURL              string // Discussion page URL resolved during processing
	CommentSource           string // Name of the extractor that produced CommentURL
	IsFiltered              bool
	FilterReason            string
	ContentHash             string
	CreatedAt               time.Time
	ContentExtractedAt      *time.Time
	ContentExtractionStatus string // pending, success, failed, skipped
	ContentExtractionError  string
	ExtractionAttempts      int
	EnclosureURL            string // RSS enclosure URL
	EnclosureLength         int64  // RSS enclosure length in bytes
	EnclosureType           string // RSS enclosure MIME type
}
