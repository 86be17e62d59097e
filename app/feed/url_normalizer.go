package feed

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// trackingParams lists query keys that carry analytics/attribution data and do
// not affect which resource a URL identifies. Matched case-insensitively.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"ref":          true,
	"source":       true,
	"fbclid":       true,
	"gclid":        true,
	"gclsrc":       true,
	"_ga":          true,
	"_gid":         true,
}

// NormalizeFeedURL canonicalizes a feed URL for deduplication: the host is
// lowercased, a single trailing slash is stripped from the path, tracking
// parameters are removed and the remaining query parameters are sorted by key.
// Anything that does not parse as an absolute URL is returned unchanged, so
// the function never fails.
//
// The result is idempotent: NormalizeFeedURL(NormalizeFeedURL(u)) == NormalizeFeedURL(u).
func NormalizeFeedURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return rawURL
	}

	u.Host = strings.ToLower(u.Host)

	if p := u.EscapedPath(); len(p) > 1 && strings.HasSuffix(p, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}

	u.RawQuery = normalizeQuery(u.RawQuery)
	u.ForceQuery = false

	return u.String()
}

type queryParam struct {
	rawKey   string
	rawValue string
	hasValue bool
	key      string // decoded key, used for filtering and ordering
}

// normalizeQuery filters tracking parameters out of a raw query string and
// sorts the survivors by key. Pairs are kept in their original encoding so
// values round-trip byte-for-byte (%20 stays %20, never becomes +). Duplicate
// keys survive as separate pairs; the stable sort keeps their relative order.
func normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	var params []queryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		rawKey, rawValue, hasValue := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}

		if trackingParams[strings.ToLower(key)] {
			continue
		}

		params = append(params, queryParam{
			rawKey:   rawKey,
			rawValue: rawValue,
			hasValue: hasValue,
			key:      key,
		})
	}

	if len(params) == 0 {
		return ""
	}

	collator := collate.New(language.Und)
	sort.SliceStable(params, func(i, j int) bool {
		return collator.CompareString(params[i].key, params[j].key) < 0
	})

	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.rawKey)
		if p.hasValue {
			b.WriteByte('=')
			b.WriteString(p.rawValue)
		}
	}

	return b.String()
}
