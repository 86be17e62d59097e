package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feedhive/feedhive/app/feed"
)

// maxFeedBodySize caps how much of a candidate document is read during
// validation. Anything larger is not a feed we want.
const maxFeedBodySize = 10 << 20

// HTTPValidator fetches a candidate URL and confirms it parses as a feed.
type HTTPValidator struct {
	httpClient *http.Client
	parser     *feed.Parser
	userAgent  string
	timeout    time.Duration
}

var _ Validator = (*HTTPValidator)(nil)

func NewHTTPValidator(httpClient *http.Client, userAgent string, timeout time.Duration) *HTTPValidator {
	return &HTTPValidator{
		httpClient: httpClient,
		parser:     feed.NewParser(),
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Validate fetches feedURL with a bounded timeout and parses it. It returns
// the feed's metadata, or an error when the document cannot be fetched or is
// not a well-formed feed.
func (v *HTTPValidator) Validate(ctx context.Context, feedURL string) (*DiscoveredFeed, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml, */*")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metadata, _, err := v.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("candidate is not a valid feed: %w", err)
	}

	return &DiscoveredFeed{
		URL:         feedURL,
		Title:       metadata.Title,
		Description: metadata.Description,
		Type:        metadata.FeedType,
		IconURL:     metadata.ImageURL,
	}, nil
}
