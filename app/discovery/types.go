// Package discovery turns an arbitrary user-submitted URL into validated feed
// candidates. Strategies are pluggable services tried in priority order:
// platform-specific lookups (e.g. Apple Podcasts) run before generic HTML
// autodiscovery. A strategy failure is isolated and reported; discovery as a
// whole never returns an error to its caller.
package discovery

import (
	"context"
)

// Syndication format names, matching feed.MapFeedType output.
const (
	TypeRSS  = "rss"
	TypeAtom = "atom"
	TypeRDF  = "rdf"
	TypeJSON = "json"
)

// DiscoveredFeed describes one validated feed candidate. Values are
// constructed fresh per discovery call and never mutated after return;
// services that enrich a validator result build a new record instead of
// modifying the original.
type DiscoveredFeed struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"` // rss, atom, rdf or json
	IconURL     string `json:"icon_url,omitempty"`
}

// Service is one discovery strategy.
//
// CanHandle must be cheap and side-effect free; the registry only calls
// Discover when it returns true. Expected failures (lookup miss, invalid
// candidate) are handled inside the service and yield an empty slice; a
// returned error marks an unexpected fault, which the registry isolates.
type Service interface {
	Name() string
	Priority() int // lower runs first
	CanHandle(rawURL string) bool
	Discover(ctx context.Context, rawURL string) ([]DiscoveredFeed, error)
}

// Validator confirms that a candidate URL serves a well-formed feed, returning
// its metadata or nil when the candidate does not parse.
type Validator interface {
	Validate(ctx context.Context, feedURL string) (*DiscoveredFeed, error)
}
