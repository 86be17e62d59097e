package comments

import (
	"net/url"
	"strings"

	"github.com/feedhive/feedhive/app/feed"
)

// CommentsElementExtractor reads the RSS 2.0 <comments> element, the most
// direct signal a feed can give.
type CommentsElementExtractor struct{}

func NewCommentsElementExtractor() *CommentsElementExtractor {
	return &CommentsElementExtractor{}
}

func (e *CommentsElementExtractor) Name() string  { return "rss-comments-element" }
func (e *CommentsElementExtractor) Priority() int { return 10 }

func (e *CommentsElementExtractor) CanHandle(item *feed.Item) bool {
	return item.CommentsURL != ""
}

func (e *CommentsElementExtractor) Extract(item *feed.Item) (*Result, error) {
	return &Result{
		URL:    item.CommentsURL,
		Source: e.Name(),
	}, nil
}

// WfwCommentExtractor reads the wfw:commentRss extension used by WordPress
// and friends to point at a per-item comment feed.
type WfwCommentExtractor struct{}

func NewWfwCommentExtractor() *WfwCommentExtractor {
	return &WfwCommentExtractor{}
}

func (e *WfwCommentExtractor) Name() string  { return "wfw-comment-rss" }
func (e *WfwCommentExtractor) Priority() int { return 20 }

func (e *WfwCommentExtractor) CanHandle(item *feed.Item) bool {
	return len(item.Extensions["wfw"]) > 0
}

func (e *WfwCommentExtractor) Extract(item *feed.Item) (*Result, error) {
	for _, name := range []string{"commentRss", "commentRSS", "comment"} {
		for _, value := range item.Extensions["wfw"][name] {
			if value != "" {
				return &Result{URL: value, Source: e.Name()}, nil
			}
		}
	}

	return nil, nil
}

// JSONFeedExtractor handles the JSON Feed url/external_url convention: when
// both are present and differ, url is the item's own page (for link blogs and
// aggregators, the discussion) and external_url is the linked article.
type JSONFeedExtractor struct{}

func NewJSONFeedExtractor() *JSONFeedExtractor {
	return &JSONFeedExtractor{}
}

func (e *JSONFeedExtractor) Name() string  { return "json-feed-url" }
func (e *JSONFeedExtractor) Priority() int { return 30 }

func (e *JSONFeedExtractor) CanHandle(item *feed.Item) bool {
	return item.ExternalURL != "" && item.Link != ""
}

func (e *JSONFeedExtractor) Extract(item *feed.Item) (*Result, error) {
	if item.Link == item.ExternalURL {
		return nil, nil
	}

	return &Result{
		URL:    item.Link,
		Source: e.Name(),
	}, nil
}

// discussionHosts are sites whose item links point at the discussion itself.
var discussionHosts = map[string]bool{
	"news.ycombinator.com": true,
	"lobste.rs":            true,
	"reddit.com":           true,
	"www.reddit.com":       true,
	"old.reddit.com":       true,
}

// DiscussionHostExtractor recognizes aggregator feeds where the item link is
// already the comments page.
type DiscussionHostExtractor struct{}

func NewDiscussionHostExtractor() *DiscussionHostExtractor {
	return &DiscussionHostExtractor{}
}

func (e *DiscussionHostExtractor) Name() string  { return "known-discussion-host" }
func (e *DiscussionHostExtractor) Priority() int { return 40 }

func (e *DiscussionHostExtractor) CanHandle(item *feed.Item) bool {
	return item.Link != ""
}

func (e *DiscussionHostExtractor) Extract(item *feed.Item) (*Result, error) {
	u, err := url.Parse(item.Link)
	if err != nil {
		return nil, nil
	}

	if !discussionHosts[strings.ToLower(u.Host)] {
		return nil, nil
	}

	return &Result{
		URL:    item.Link,
		Source: e.Name(),
	}, nil
}
