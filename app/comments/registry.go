package comments

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/feedhive/feedhive/app/feed"
)

// Registry holds an ordered set of extractors. Registration happens during
// application composition; afterwards the registry is read-only and safe for
// concurrent use by the processing workers.
type Registry struct {
	extractors []Extractor
}

func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]Extractor, 0),
	}
}

// Register appends an extractor and re-sorts ascending by priority. The sort
// is stable: extractors with equal priority keep registration order.
func (r *Registry) Register(extractor Extractor) {
	r.extractors = append(r.extractors, extractor)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() < r.extractors[j].Priority()
	})
}

// Extract runs the extractors in priority order and returns the first
// non-empty comment URL, or nil when no extractor matches. This is
// first-match-wins: once an extractor yields a URL, the rest never run.
//
// A failing extractor is logged and skipped; one extractor's fault never
// blocks the others.
func (r *Registry) Extract(item *feed.Item) *Result {
	for _, extractor := range r.extractors {
		if !extractor.CanHandle(item) {
			continue
		}

		result, err := r.safeExtract(extractor, item)
		if err != nil {
			slog.Warn("Comment link extractor failed", "extractor", extractor.Name(), "guid", item.GUID, "error", err)
			continue
		}

		if result != nil && result.URL != "" {
			return result
		}
	}

	return nil
}

// safeExtract converts a panicking extractor into an error so a misbehaving
// plugin cannot take down a processing worker.
func (r *Registry) safeExtract(extractor Extractor, item *feed.Item) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("extractor panicked: %v", rec)
		}
	}()

	return extractor.Extract(item)
}
