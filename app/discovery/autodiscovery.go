package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/feedhive/feedhive/app/feed"
)

// feedLinkTypes are the MIME types recognized on <link rel="alternate">
// elements during HTML autodiscovery.
var feedLinkTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
	"application/xml":       true,
	"text/xml":              true,
}

// commonFeedPaths are probed against the site root when a page declares no
// feed links of its own.
var commonFeedPaths = []string{
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
	"/feed",
	"/rss",
	"/feeds/posts/default",
}

const maxLinkCandidates = 5

// AutodiscoveryService finds feeds for arbitrary web pages. It tries the URL
// itself first, then HTML link autodiscovery, then a set of well-known feed
// paths. Registered at a low priority so platform-specific services run first.
type AutodiscoveryService struct {
	httpClient *http.Client
	validator  Validator
	telemetry  Telemetry
	userAgent  string
	timeout    time.Duration
}

var _ Service = (*AutodiscoveryService)(nil)

func NewAutodiscoveryService(httpClient *http.Client, validator Validator, telemetry Telemetry,
	userAgent string, timeout time.Duration) *AutodiscoveryService {
	if telemetry == nil {
		telemetry = NopTelemetry{}
	}
	return &AutodiscoveryService{
		httpClient: httpClient,
		validator:  validator,
		telemetry:  telemetry,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (s *AutodiscoveryService) Name() string  { return "autodiscovery" }
func (s *AutodiscoveryService) Priority() int { return 100 }

func (s *AutodiscoveryService) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *AutodiscoveryService) Discover(ctx context.Context, rawURL string) ([]DiscoveredFeed, error) {
	end := s.telemetry.StartSpan("discovery.autodiscovery", rawURL)
	defer end()

	// The URL may point at a feed directly.
	if validated, err := s.validator.Validate(ctx, rawURL); err == nil && validated != nil {
		return []DiscoveredFeed{*validated}, nil
	}

	candidates, err := s.scanPage(ctx, rawURL)
	if err != nil {
		s.telemetry.AddBreadcrumb("discovery", "page scan failed", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
	}

	if discovered := s.validateCandidates(ctx, candidates); len(discovered) > 0 {
		return discovered, nil
	}

	return s.probeCommonPaths(ctx, rawURL), nil
}

// scanPage fetches the page and collects feed URLs declared through
// <link rel="alternate"> elements, resolved against the page URL and
// deduplicated in document order.
func (s *AutodiscoveryService) scanPage(ctx context.Context, pageURL string) ([]string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	var candidates []string
	seen := map[string]bool{}

	doc.Find(`link[rel="alternate"]`).Each(func(_ int, sel *goquery.Selection) {
		linkType, _ := sel.Attr("type")
		if !feedLinkTypes[strings.ToLower(strings.TrimSpace(linkType))] {
			return
		}

		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		resolved := feed.NormalizeFeedURL(base.ResolveReference(ref).String())
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		candidates = append(candidates, resolved)
	})

	return candidates, nil
}

// validateCandidates checks declared feed URLs and keeps the ones that parse.
// The candidate list is capped to bound the number of outbound requests.
func (s *AutodiscoveryService) validateCandidates(ctx context.Context, candidates []string) []DiscoveredFeed {
	if len(candidates) > maxLinkCandidates {
		candidates = candidates[:maxLinkCandidates]
	}

	var discovered []DiscoveredFeed
	for _, candidate := range candidates {
		validated, err := s.validator.Validate(ctx, candidate)
		if err != nil || validated == nil {
			s.telemetry.AddBreadcrumb("discovery", "candidate failed validation", map[string]interface{}{
				"url": candidate,
			})
			continue
		}
		discovered = append(discovered, *validated)
	}

	return discovered
}

// probeCommonPaths tries well-known feed locations against the site root and
// returns the first one that validates.
func (s *AutodiscoveryService) probeCommonPaths(ctx context.Context, rawURL string) []DiscoveredFeed {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	root := &url.URL{Scheme: u.Scheme, Host: u.Host}

	for _, path := range commonFeedPaths {
		candidate := root.JoinPath(path).String()
		validated, err := s.validator.Validate(ctx, candidate)
		if err != nil || validated == nil {
			continue
		}
		return []DiscoveredFeed{*validated}
	}

	return nil
}
