package api

import (
	"github.com/feedhive/feedhive/app/cache"
	"github.com/feedhive/feedhive/app/database"
	"github.com/feedhive/feedhive/app/discovery"
	"github.com/feedhive/feedhive/app/feed"
	"github.com/feedhive/feedhive/app/tasks"
)

type GeneratorInterface interface {
	Run(feed database.Feed, items []database.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	feedRepo          database.FeedRepository
	itemRepo          database.ItemRepository
	generator         GeneratorInterface
	configCache       *feed.ConfigCache
	filterer          *feed.Filterer
	scheduler         tasks.TaskSchedulerInterface
	discoveryRegistry *discovery.Registry
	feedCache         cache.CacheInterface
}
