package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type itemRepository struct {
	db *DB
}

var _ ItemRepository = (*itemRepository)(nil)

func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `
	i.id, i.feed_id, i.guid, COALESCE(i.link, ''), COALESCE(i.title, ''),
	COALESCE(i.description, ''), COALESCE(i.content, ''),
	i.published_at, i.updated_at, COALESCE(i.authors, '{}'), COALESCE(i.categories, '{}'),
	COALESCE(i.comment_url, ''), COALESCE(i.comment_source, ''),
	i.is_filtered, COALESCE(i.filter_reason, ''), i.content_hash, i.created_at,
	i.content_extracted_at, i.content_extraction_status, COALESCE(i.content_extraction_error, ''),
	i.extraction_attempts,
	COALESCE(i.enclosure_url, ''), i.enclosure_length, COALESCE(i.enclosure_type, '')`

func scanItem(rows interface{ Scan(...interface{}) error }) (Item, error) {
	var item Item
	err := rows.Scan(
		&item.ID, &item.FeedID, &item.GUID, &item.Link, &item.Title,
		&item.Description, &item.Content,
		&item.PublishedAt, &item.UpdatedAt, pq.Array(&item.Authors), pq.Array(&item.Categories),
		&item.CommentURL, &item.CommentSource,
		&item.IsFiltered, &item.FilterReason, &item.ContentHash, &item.CreatedAt,
		&item.ContentExtractedAt, &item.ContentExtractionStatus, &item.ContentExtractionError,
		&item.ExtractionAttempts,
		&item.EnclosureURL, &item.EnclosureLength, &item.EnclosureType,
	)
	return item, err
}

// UpsertItem inserts or updates an item, keyed by (feed_id, guid). The feed is
// resolved by name so callers never deal with database UUIDs.
func (r *itemRepository) UpsertItem(feedName string, item FeedItem) error {
	_, err := r.db.Exec(`
		INSERT INTO feed_items (
			feed_id, guid, link, title, description, content,
			published_at, updated_at, authors, categories,
			comment_url, comment_source,
			is_filtered, filter_reason, content_hash,
			enclosure_url, enclosure_length, enclosure_type
		)
		SELECT f.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		FROM feeds f WHERE f.name = $1
		ON CONFLICT (feed_id, guid) DO UPDATE SET
			link = EXCLUDED.link,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at,
			authors = EXCLUDED.authors,
			categories = EXCLUDED.categories,
			comment_url = EXCLUDED.comment_url,
			comment_source = EXCLUDED.comment_source,
			is_filtered = EXCLUDED.is_filtered,
			filter_reason = EXCLUDED.filter_reason,
			content_hash = EXCLUDED.content_hash,
			enclosure_url = EXCLUDED.enclosure_url,
			enclosure_length = EXCLUDED.enclosure_length,
			enclosure_type = EXCLUDED.enclosure_type
	`, feedName, item.GUID, item.Link, item.Title, item.Description, item.Content,
		item.PublishedAt, item.UpdatedAt, pq.Array(item.Authors), pq.Array(item.Categories),
		item.CommentURL, item.CommentSource,
		item.IsFiltered, item.FilterReason, item.ContentHash,
		item.EnclosureURL, item.EnclosureLength, item.EnclosureType)

	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	return nil
}

// CheckDuplicate reports whether an item with the given content hash already
// exists within the feed, returning the matching item ID when it does.
func (r *itemRepository) CheckDuplicate(feedName, contentHash string) (bool, *string, error) {
	var duplicateID string
	err := r.db.QueryRow(`
		SELECT i.id
		FROM feed_items i
		JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = $1 AND i.content_hash = $2
		LIMIT 1
	`, feedName, contentHash).Scan(&duplicateID)

	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return true, &duplicateID, nil
}

func (r *itemRepository) GetVisibleItems(feedName string, limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM feed_items i
		JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = $1
		  AND i.is_filtered = false
		ORDER BY i.published_at DESC
		LIMIT $2
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get visible items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *itemRepository) GetAllItems(feedName string) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM feed_items i
		JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = $1
		ORDER BY i.published_at DESC
	`, feedName)
	if err != nil {
		return nil, fmt.Errorf("failed to get all items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *itemRepository) GetItemCount(feedName string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM feed_items i
		JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = $1
	`, feedName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *itemRepository) GetItemStats(feedName string) (total, visible, filtered int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN i.is_filtered = false THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN i.is_filtered = true THEN 1 ELSE 0 END), 0)
		FROM feed_items i
		JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = $1
	`, feedName).Scan(&total, &visible, &filtered)

	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get item stats: %w", err)
	}

	return total, visible, filtered, nil
}

func (r *itemRepository) UpdateItemFilterStatus(itemID string, isFiltered bool, reason string) error {
	_, err := r.db.Exec(`
		UPDATE feed_items
		SET is_filtered = $2, filter_reason = $3
		WHERE id = $1
	`, itemID, isFiltered, reason)

	if err != nil {
		return fmt.Errorf("failed to update item filter status: %w", err)
	}

	return nil
}

// GetItemsForExtraction returns visible items that still need their article
// content fetched. Items that failed three times are left alone.
func (r *itemRepository) GetItemsForExtraction(feedName string, limit int) ([]ItemForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT i.id, COALESCE(i.link, '')
		FROM feed_items i
		JOIN feeds f ON f.id = i.feed_id
		WHERE f.name = $1
		  AND i.is_filtered = false
		  AND i.content_extraction_status IN ('pending', 'failed')
		  AND i.extraction_attempts < 3
		ORDER BY i.published_at DESC
		LIMIT $2
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for extraction: %w", err)
	}
	defer rows.Close()

	var items []ItemForExtraction
	for rows.Next() {
		var item ItemForExtraction
		if err := rows.Scan(&item.ID, &item.Link); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}

	return items, nil
}

func (r *itemRepository) UpdateExtractionStatus(itemID string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE feed_items
		SET content_extraction_status = $2, content_extracted_at = $3,
		    content_extraction_error = $4, extraction_attempts = extraction_attempts + 1
		WHERE id = $1
	`, itemID, status, extractedAt, errorMsg)

	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	return nil
}

func (r *itemRepository) UpdateExtractedContentAndStatus(itemID string, content string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE feed_items
		SET content = $2, content_extraction_status = $3, content_extracted_at = $4,
		    content_extraction_error = $5, extraction_attempts = extraction_attempts + 1
		WHERE id = $1
	`, itemID, content, status, extractedAt, errorMsg)

	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	return nil
}
