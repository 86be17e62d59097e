package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	gofeedjson "github.com/mmcdole/gofeed/json"
	"github.com/mmcdole/gofeed/rss"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	p := gofeed.NewParser()
	p.RSSTranslator = &commentsRSSTranslator{defaultTranslator: &gofeed.DefaultRSSTranslator{}}
	p.JSONTranslator = &externalURLJSONTranslator{defaultTranslator: &gofeed.DefaultJSONTranslator{}}

	return &Parser{
		gofeedParser: p,
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		FeedType:    MapFeedType(feed.FeedType, feed.FeedVersion),
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	if feed.PublishedParsed != nil {
		metadata.FeedPublishedAt = feed.PublishedParsed
	}

	if feed.UpdatedParsed != nil {
		metadata.FeedUpdatedAt = feed.UpdatedParsed
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		normalized := p.normalizeItem(item)
		normalized.ContentHash = p.generateContentHash(normalized)
		items = append(items, normalized)
	}

	return metadata, items, nil
}

// MapFeedType maps gofeed's type/version pair onto the syndication format
// names used throughout the application: rss, atom, rdf or json. RSS 0.9x and
// 1.0 documents are RDF-based and reported as such.
func MapFeedType(feedType, feedVersion string) string {
	switch feedType {
	case "atom":
		return "atom"
	case "json":
		return "json"
	case "rss":
		if strings.HasPrefix(feedVersion, "1.") || strings.HasPrefix(feedVersion, "0.9") {
			return "rdf"
		}
		return "rss"
	default:
		return "rss"
	}
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
		CommentsURL: item.Custom["comments"],
		ExternalURL: item.Custom["external_url"],
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = *item.PublishedParsed
	}

	if item.UpdatedParsed != nil {
		normalized.UpdatedAt = item.UpdatedParsed
	}

	normalized.Authors = p.extractAuthors(item)

	if item.Categories != nil {
		normalized.Categories = item.Categories
	}

	if len(item.Extensions) > 0 {
		normalized.Extensions = make(map[string]map[string][]string, len(item.Extensions))
		for ns, elements := range item.Extensions {
			normalized.Extensions[ns] = make(map[string][]string, len(elements))
			for name, exts := range elements {
				values := make([]string, 0, len(exts))
				for _, e := range exts {
					values = append(values, e.Value)
				}
				normalized.Extensions[ns][name] = values
			}
		}
	}

	// Extract first enclosure if available (RSS 2.0 spec allows only one per item)
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		enclosure := item.Enclosures[0]
		normalized.EnclosureURL = enclosure.URL
		normalized.EnclosureType = enclosure.Type

		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				normalized.EnclosureLength = length
			}
		}
	}

	return normalized
}

// generateContentHash hashes the item title together with the normalized link,
// so two copies of the same item that differ only in tracking parameters
// deduplicate to a single record.
func (p *Parser) generateContentHash(item Item) string {
	content := fmt.Sprintf("%s|%s",
		item.Title,
		NormalizeFeedURL(item.Link))

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func (p *Parser) extractAuthors(item *gofeed.Item) []string {
	var authors []string

	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author != nil {
				authorStr := p.formatAuthor(author.Name, author.Email)
				if authorStr != "" {
					authors = append(authors, authorStr)
				}
			}
		}
	} else if item.Author != nil {
		authorStr := p.formatAuthor(item.Author.Name, item.Author.Email)
		if authorStr != "" {
			authors = append(authors, authorStr)
		}
	}

	return authors
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}

// commentsRSSTranslator augments the default RSS translation with the
// <comments> element, which gofeed parses but does not map onto gofeed.Item.
type commentsRSSTranslator struct {
	defaultTranslator *gofeed.DefaultRSSTranslator
}

func (t *commentsRSSTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed is not an RSS feed")
	}

	translated, err := t.defaultTranslator.Translate(rssFeed)
	if err != nil {
		return nil, err
	}

	for i, rssItem := range rssFeed.Items {
		if i >= len(translated.Items) || rssItem.Comments == "" {
			continue
		}
		if translated.Items[i].Custom == nil {
			translated.Items[i].Custom = make(map[string]string)
		}
		translated.Items[i].Custom["comments"] = rssItem.Comments
	}

	return translated, nil
}

// externalURLJSONTranslator surfaces the JSON Feed external_url field, which
// distinguishes the linked article from the item's own (often discussion) page.
type externalURLJSONTranslator struct {
	defaultTranslator *gofeed.DefaultJSONTranslator
}

func (t *externalURLJSONTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	jsonFeed, ok := feed.(*gofeedjson.Feed)
	if !ok {
		return nil, fmt.Errorf("feed is not a JSON feed")
	}

	translated, err := t.defaultTranslator.Translate(jsonFeed)
	if err != nil {
		return nil, err
	}

	for i, jsonItem := range jsonFeed.Items {
		if i >= len(translated.Items) || jsonItem == nil || jsonItem.ExternalURL == "" {
			continue
		}
		if translated.Items[i].Custom == nil {
			translated.Items[i].Custom = make(map[string]string)
		}
		translated.Items[i].Custom["external_url"] = jsonItem.ExternalURL
	}

	return translated, nil
}
