package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedType        string // rss, atom, rdf or json
	FeedPublishedAt *time.Time
	FeedUpdatedAt   *time.Time
}

type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt time.Time
	UpdatedAt   *time.Time
	Authors     []string // Multiple authors in format "email (name)" or "name"
	Categories  []string

	// Format-specific extras surfaced by the parser for comment-link extraction
	CommentsURL string                         // RSS <comments> element
	ExternalURL string                         // JSON Feed external_url
	Extensions  map[string]map[string][]string // namespace -> element -> values

	// Extraction output, populated during processing
	CommentURL    string
	CommentSource string

	ContentHash     string
	IsFiltered      bool
	FilterReason    string
	EnclosureURL    string // RSS enclosure URL
	EnclosureLength int64  // RSS enclosure length in bytes
	EnclosureType   string // RSS enclosure MIME type
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`         // seconds
	ExtractContent  bool `yaml:"extract_content"` // enable content extraction
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
