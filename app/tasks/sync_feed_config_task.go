package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feedhive/feedhive/app/database"
	"github.com/feedhive/feedhive/app/feed"
)

type SyncFeedConfigTask struct {
	Task
	FeedConfig *feed.Config
	feedRepo   database.FeedRepository
}

func NewSyncFeedConfigTask(feedName string, feedConfig *feed.Config, feedRepo database.FeedRepository) *SyncFeedConfigTask {
	return &SyncFeedConfigTask{
		Task:       NewTask(TaskTypeSyncFeedConfig, feedName),
		FeedConfig: feedConfig,
		feedRepo:   feedRepo,
	}
}

func (t *SyncFeedConfigTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// The URL is normalized before storage so the same feed configured with
	// tracking parameters or case differences maps to one database row.
	err := t.feedRepo.UpsertFeed(
		t.FeedConfig.Name,
		feed.NormalizeFeedURL(t.FeedConfig.URL))
	if err != nil {
		slog.Error("Task failed", "type", "SyncFeedConfig", "feed", t.FeedName, "error", err)
		return fmt.Errorf("failed to sync feed config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncFeedConfig",
		"feed", t.FeedName,
		"duration", t.GetDuration())

	return nil
}
