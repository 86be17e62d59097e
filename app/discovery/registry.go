package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Registry holds the ordered discovery strategies. Services are registered
// during application composition; afterwards the registry is read-only and
// safe for concurrent use.
type Registry struct {
	services  []Service
	telemetry Telemetry
}

func NewRegistry(telemetry Telemetry) *Registry {
	if telemetry == nil {
		telemetry = NopTelemetry{}
	}
	return &Registry{
		services:  make([]Service, 0),
		telemetry: telemetry,
	}
}

// Register appends a service and re-sorts ascending by priority. The sort is
// stable: services with equal priority keep registration order.
func (r *Registry) Register(service Service) {
	r.services = append(r.services, service)
	sort.SliceStable(r.services, func(i, j int) bool {
		return r.services[i].Priority() < r.services[j].Priority()
	})
}

// Discover tries each applicable service in priority order and stops at the
// first non-empty result set. A service that wants generic discovery to run
// after it simply returns an empty slice.
//
// Discover never returns an error: a failing service is reported to telemetry,
// logged, and treated as if it found nothing. The worst case is an empty
// result, which callers must treat as a normal outcome.
func (r *Registry) Discover(ctx context.Context, rawURL string) []DiscoveredFeed {
	end := r.telemetry.StartSpan("feed.discover", rawURL)
	defer end()

	for _, service := range r.services {
		if !service.CanHandle(rawURL) {
			continue
		}

		r.telemetry.AddBreadcrumb("discovery", "trying service", map[string]interface{}{
			"service": service.Name(),
			"url":     rawURL,
		})

		feeds, err := r.safeDiscover(ctx, service, rawURL)
		if err != nil {
			slog.Warn("Discovery service failed", "service", service.Name(), "url", rawURL, "error", err)
			r.telemetry.CaptureException(err, map[string]interface{}{
				"service": service.Name(),
				"url":     rawURL,
			})
			continue
		}

		if len(feeds) > 0 {
			slog.Debug("Discovery succeeded", "service", service.Name(), "url", rawURL, "feeds", len(feeds))
			return feeds
		}
	}

	return nil
}

// safeDiscover shields the registry from a panicking service.
func (r *Registry) safeDiscover(ctx context.Context, service Service, rawURL string) (feeds []DiscoveredFeed, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			feeds = nil
			err = fmt.Errorf("discovery service panicked: %v", rec)
		}
	}()

	return service.Discover(ctx, rawURL)
}
