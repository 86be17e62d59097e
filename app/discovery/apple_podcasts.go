package discovery

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// podcastIDPattern matches the numeric identifier at the end of an Apple
// Podcasts URL path, e.g. /us/podcast/some-show/id1234567890.
var podcastIDPattern = regexp.MustCompile(`/id(\d+)$`)

// LookupCache caches raw lookup API responses. Satisfied by the application's
// Redis cache; a nil cache disables caching.
type LookupCache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, ttl time.Duration) error
}

const lookupCacheTTL = 1 * time.Hour

// ApplePodcastsService resolves Apple Podcasts page URLs to the podcast's
// original RSS feed through the iTunes lookup API.
type ApplePodcastsService struct {
	httpClient *http.Client
	validator  Validator
	telemetry  Telemetry
	cache      LookupCache
	lookupURL  string
	timeout    time.Duration
}

var _ Service = (*ApplePodcastsService)(nil)

func NewApplePodcastsService(httpClient *http.Client, validator Validator, telemetry Telemetry,
	cache LookupCache, lookupURL string, timeout time.Duration) *ApplePodcastsService {
	if telemetry == nil {
		telemetry = NopTelemetry{}
	}
	return &ApplePodcastsService{
		httpClient: httpClient,
		validator:  validator,
		telemetry:  telemetry,
		cache:      cache,
		lookupURL:  lookupURL,
		timeout:    timeout,
	}
}

func (s *ApplePodcastsService) Name() string  { return "apple-podcasts" }
func (s *ApplePodcastsService) Priority() int { return 10 }

// CanHandle reports whether the URL's host is apple.com or a subdomain.
func (s *ApplePodcastsService) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	return host == "apple.com" || strings.HasSuffix(host, ".apple.com")
}

// Discover runs the lookup pipeline. Every expected failure along the way
// (no podcast ID in the URL, lookup miss, non-podcast result, failed
// validation) aborts to an empty result so generic discovery can take over.
func (s *ApplePodcastsService) Discover(ctx context.Context, rawURL string) ([]DiscoveredFeed, error) {
	end := s.telemetry.StartSpan("discovery.apple_podcasts", rawURL)
	defer end()

	podcastID := extractPodcastID(rawURL)
	if podcastID == "" {
		return nil, nil
	}

	result, err := s.lookup(ctx, podcastID)
	if err != nil {
		s.telemetry.AddBreadcrumb("discovery", "itunes lookup failed", map[string]interface{}{
			"podcast_id": podcastID,
			"error":      err.Error(),
		})
		return nil, nil
	}
	if result == nil {
		return nil, nil
	}

	if result.WrapperType != "track" || result.Kind != "podcast" {
		s.telemetry.AddBreadcrumb("discovery", "lookup result is not a podcast", map[string]interface{}{
			"podcast_id":   podcastID,
			"wrapper_type": result.WrapperType,
			"kind":         result.Kind,
		})
		return nil, nil
	}

	if result.FeedURL == "" {
		return nil, nil
	}

	validated, err := s.validator.Validate(ctx, result.FeedURL)
	if err != nil || validated == nil {
		s.telemetry.CaptureException(fmt.Errorf("podcast feed failed validation: %w", err), map[string]interface{}{
			"podcast_id": podcastID,
			"feed_url":   result.FeedURL,
		})
		return nil, nil
	}

	// Overlay the platform's richer metadata onto the validator's base
	// record. A new value is built so the validator result stays untouched.
	discovered := DiscoveredFeed{
		URL:         validated.URL,
		Title:       cmp.Or(result.CollectionName, result.TrackName, validated.Title),
		Description: cmp.Or(result.Description, validated.Description),
		Type:        validated.Type,
		IconURL:     cmp.Or(result.ArtworkURL, validated.IconURL),
	}

	return []DiscoveredFeed{discovered}, nil
}

type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	WrapperType    string `json:"wrapperType"`
	Kind           string `json:"kind"`
	FeedURL        string `json:"feedUrl"`
	CollectionName string `json:"collectionName"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	Description    string `json:"description"`
	ArtworkURL     string `json:"artworkUrl600"`
}

// lookup queries the iTunes lookup API for a podcast ID, consulting the cache
// first. It returns nil when the API has no results.
func (s *ApplePodcastsService) lookup(ctx context.Context, podcastID string) (*lookupResult, error) {
	cacheKey := "itunes:lookup:" + podcastID

	if s.cache != nil {
		if cached, err := s.cache.Get(cacheKey); err == nil && cached != "" {
			return decodeLookupResponse([]byte(cached))
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lookupURL := fmt.Sprintf("%s?id=%s&entity=podcast", s.lookupURL, url.QueryEscape(podcastID))

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	if s.cache != nil {
		// Cache write failures are non-fatal; the lookup already succeeded.
		_ = s.cache.Set(cacheKey, string(data), lookupCacheTTL)
	}

	return decodeLookupResponse(data)
}

func decodeLookupResponse(data []byte) (*lookupResult, error) {
	var response lookupResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	if response.ResultCount == 0 || len(response.Results) == 0 {
		return nil, nil
	}

	return &response.Results[0], nil
}

// extractPodcastID pulls the numeric identifier out of an Apple Podcasts URL
// path. Returns "" when the path carries no identifier.
func extractPodcastID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	matches := podcastIDPattern.FindStringSubmatch(u.Path)
	if matches == nil {
		return ""
	}

	return matches[1]
}
