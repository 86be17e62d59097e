// Package comments finds the discussion/comments page associated with a feed
// item. Feed formats expose this in different places (the RSS <comments>
// element, wfw:commentRss, JSON Feed url/external_url pairs), so extraction is
// a chain of small pluggable extractors tried in priority order.
package comments

import (
	"github.com/feedhive/feedhive/app/feed"
)

// Result is the outcome of a successful extraction. Source identifies the
// extractor that produced the URL, e.g. "rss-comments-element".
type Result struct {
	URL    string
	Source string
}

// Extractor is one strategy for locating an item's discussion URL.
//
// CanHandle is a pure predicate and must not panic; when it returns false the
// registry never calls Extract for that item. Extract returns nil when the
// item offers nothing usable.
type Extractor interface {
	Name() string
	Priority() int // lower runs first
	CanHandle(item *feed.Item) bool
	Extract(item *feed.Item) (*Result, error)
}
