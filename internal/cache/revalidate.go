package cache

import (
	"context"

	"threads/internal/middleware"
	"threads/internal/observability"
)

// RevalidationPublisher announces a stale view path to other instances.
type RevalidationPublisher interface {
	PublishRevalidation(ctx context.Context, path string) error
}

// ViewRevalidator evicts the cached view for a path from both cache layers
// and announces it so other instances evict their local copies.
type ViewRevalidator struct {
	publisher RevalidationPublisher
	views     *ViewCache
}

// NewViewRevalidator returns a revalidator. publisher and views may be nil.
func NewViewRevalidator(publisher RevalidationPublisher, views *ViewCache) *ViewRevalidator {
	return &ViewRevalidator{publisher: publisher, views: views}
}

// Revalidate marks path stale. Failures are logged, never returned.
func (r *ViewRevalidator) Revalidate(ctx context.Context, path string) {
	if path == "" {
		return
	}
	observability.ViewRevalidations.Inc()

	// Redis goes first so a local refill cannot pick up the stale copy.
	if err := Invalidate(ctx, ViewKey(path)); err != nil {
		middleware.Logger.WarnContext(ctx, "view eviction failed", "path", path, "error", err)
	}
	r.views.Evict(path)
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishRevalidation(ctx, path); err != nil {
		middleware.Logger.WarnContext(ctx, "revalidation publish failed", "path", path, "error", err)
	}
}
