package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and API handlers to manage background task
// processing. Provides task queue management and worker pool control.
// Example usage:
//
//	scheduler := NewScheduler(configCache, feedRepo, itemRepo, httpClient, parser, filterer, commentsRegistry, contentExtractor, feedCache)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewProcessFeedTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
