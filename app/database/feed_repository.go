package database

import (
	"database/sql"
	"fmt"
	"time"
)

type feedRepository struct {
	db *DB
}

var _ FeedRepository = (*feedRepository)(nil)

func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

// UpsertFeed registers a feed by name. A changed URL clears next_fetch_at so
// the scheduler refetches on its next pass.
func (r *feedRepository) UpsertFeed(feedName, feedURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO feeds (name, feed_url)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = EXCLUDED.feed_url,
			next_fetch_at = CASE WHEN feeds.feed_url IS DISTINCT FROM EXCLUDED.feed_url THEN NULL ELSE feeds.next_fetch_at END,
			updated_at = NOW()
	`, feedName, feedURL)

	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

func (r *feedRepository) GetFeed(feedName string) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, name, feed_url, COALESCE(link, ''), COALESCE(title, ''),
		       COALESCE(description, ''), COALESCE(image_url, ''), COALESCE(language, ''),
		       COALESCE(feed_type, ''),
		       last_fetched_at, next_fetch_at, feed_published_at, created_at, updated_at
		FROM feeds
		WHERE name = $1
	`, feedName).Scan(
		&feed.ID, &feed.Name, &feed.FeedURL, &feed.Link, &feed.Title,
		&feed.Description, &feed.ImageURL, &feed.Language, &feed.FeedType,
		&feed.LastFetchedAt, &feed.NextFetchAt, &feed.FeedPublishedAt,
		&feed.CreatedAt, &feed.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

func (r *feedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

// UpdateFeedMetadata records the parsed channel metadata after a successful
// fetch and schedules the next one.
func (r *feedRepository) UpdateFeedMetadata(feedName string, title string, link string, description string, imageURL string, language string, feedType string, feedPublishedAt *time.Time, nextFetch time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET title = $2, link = $3, description = $4, image_url = $5, language = $6,
		    feed_type = $7, feed_published_at = $8, next_fetch_at = $9,
		    last_fetched_at = NOW(), updated_at = NOW()
		WHERE name = $1
	`, feedName, title, link, description, imageURL, language, feedType, feedPublishedAt, nextFetch)

	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}
