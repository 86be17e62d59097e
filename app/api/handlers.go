package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/feedhive/feedhive/app/cache"
	"github.com/feedhive/feedhive/app/database"
	"github.com/feedhive/feedhive/app/discovery"
	"github.com/feedhive/feedhive/app/feed"
	"github.com/feedhive/feedhive/app/tasks"
	"github.com/gin-gonic/gin"
)

// generatedFeedTTL bounds how long generated XML is served from Redis. The
// processing pipeline invalidates the entry earlier when items change.
const generatedFeedTTL = 5 * time.Minute

func NewHandler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	itemRepo database.ItemRepository, filterer *feed.Filterer,
	scheduler tasks.TaskSchedulerInterface, discoveryRegistry *discovery.Registry,
	feedCache cache.CacheInterface) *Handler {
	return &Handler{
		feedRepo:          feedRepo,
		itemRepo:          itemRepo,
		generator:         feed.NewGenerator(),
		configCache:       configCache,
		filterer:          filterer,
		scheduler:         scheduler,
		discoveryRegistry: discoveryRegistry,
		feedCache:         feedCache,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if h.feedCache != nil {
		if content, hit, err := h.feedCache.GetGeneratedFeed(name); err == nil && hit {
			c.Header("Content-Type", "application/xml; charset=utf-8")
			c.Header("X-Cache", "HIT")
			c.String(http.StatusOK, content)
			return
		}
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	feed, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if feed == nil {
		slog.Error("Feed not found in database", "feed", name)
		c.Status(http.StatusNotFound)
		return
	}

	items, err := h.itemRepo.GetVisibleItems(name, feedConfig.Settings.MaxItems)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*feed, items)
	if err != nil {
		slog.Error("RSS generation error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if h.feedCache != nil {
		if err := h.feedCache.SetGeneratedFeed(name, rss, generatedFeedTTL); err != nil {
			slog.Warn("Failed to cache generated feed", "feed", name, "error", err)
		}
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", feed.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	if h.feedCache != nil {
		health["cache"] = h.feedCache.Health()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		feedInfo := map[string]interface{}{
			"name":             feedConfig.Name,
			"url":              feedConfig.URL,
			"title":            "",
			"enabled":          feedConfig.Settings.Enabled,
			"max_items":        feedConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(feedConfig.Filters),
		}

		if feed, err := h.feedRepo.GetFeed(feedConfig.Name); err == nil && feed != nil {
			feedInfo["title"] = feed.Title
			feedInfo["type"] = feed.FeedType
			feedInfo["last_fetched_at"] = feed.LastFetchedAt
			feedInfo["next_fetch_at"] = feed.NextFetchAt
			feedInfo["updated_at"] = feed.UpdatedAt
		}

		if itemCount, err := h.itemRepo.GetItemCount(feedConfig.Name); err == nil {
			feedInfo["item_count"] = itemCount
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feed, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feed == nil {
		slog.Error("Feed not found in database", "feed", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"url":              feedConfig.URL,
		"title":            feed.Title,
		"type":             feed.FeedType,
		"enabled":          feedConfig.Settings.Enabled,
		"max_items":        feedConfig.Settings.MaxItems,
		"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
		"filters":          feedConfig.Filters,
	}

	details["database"] = map[string]interface{}{
		"id":              feed.ID,
		"name":            feed.Name,
		"last_fetched_at": feed.LastFetchedAt,
		"next_fetch_at":   feed.NextFetchAt,
		"created_at":      feed.CreatedAt,
		"updated_at":      feed.UpdatedAt,
	}

	if total, visible, filtered, err := h.itemRepo.GetItemStats(name); err == nil {
		details["items"] = map[string]interface{}{
			"total":    total,
			"visible":  visible,
			"filtered": filtered,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIReloadFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feed, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncFeedTask := tasks.NewSyncFeedConfigTask(name, feedConfig, h.feedRepo)
	err = h.scheduler.EnqueueTask(syncFeedTask)
	if err != nil {
		slog.Error("Error enqueueing sync task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	refilterFeedTask := tasks.NewRefilterFeedTask(name, feedConfig, h.filterer, h.feedRepo, h.itemRepo, h.feedCache)
	err = h.scheduler.EnqueueTask(refilterFeedTask)
	if err != nil {
		slog.Error("Error enqueueing refilter task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refilter task",
			"details": err.Error(),
		})
		return
	}

	response := gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"feed": gin.H{
			"name":  name,
			"title": feed.Title,
			"url":   feedConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   syncFeedTask.ID,
				"type": syncFeedTask.Type,
			},
			{
				"id":   refilterFeedTask.ID,
				"type": refilterFeedTask.Type,
			},
		},
	}

	c.JSON(http.StatusOK, response)
}

type discoverRequest struct {
	URL string `json:"url" binding:"required"`
}

// APIDiscoverFeeds resolves an arbitrary URL to validated feed candidates.
// An empty result is a normal outcome, not an error.
func (h *Handler) APIDiscoverFeeds(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid url field"})
		return
	}

	feeds := h.discoveryRegistry.Discover(c.Request.Context(), req.URL)
	if feeds == nil {
		feeds = []discovery.DiscoveredFeed{}
	}

	c.JSON(http.StatusOK, gin.H{
		"url":   req.URL,
		"feeds": feeds,
		"total": len(feeds),
	})
}

type subscribeRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

// APISubscribeFeed discovers a feed for the submitted URL and registers it as
// a runtime feed, scheduling sync and processing immediately.
func (h *Handler) APISubscribeFeed(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or url field"})
		return
	}

	if existing, err := h.configCache.GetConfig(req.Name); err == nil && existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Feed name already in use"})
		return
	}

	discoveredFeeds := h.discoveryRegistry.Discover(c.Request.Context(), req.URL)
	if len(discoveredFeeds) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "No feeds found for the submitted URL",
			"url":   req.URL,
		})
		return
	}

	discovered := discoveredFeeds[0]
	feedConfig := feed.NewRuntimeConfig(req.Name, discovered.URL)

	if err := h.configCache.AddConfig(feedConfig); err != nil {
		slog.Error("Failed to register runtime feed", "feed", req.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to register feed",
			"details": err.Error(),
		})
		return
	}

	syncFeedTask := tasks.NewSyncFeedConfigTask(req.Name, feedConfig, h.feedRepo)
	if err := h.scheduler.EnqueueTask(syncFeedTask); err != nil {
		slog.Error("Error enqueueing sync task", "feed", req.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"feed": gin.H{
			"name":        req.Name,
			"url":         discovered.URL,
			"title":       discovered.Title,
			"description": discovered.Description,
			"type":        discovered.Type,
		},
		"alternatives": len(discoveredFeeds) - 1,
	})
}
