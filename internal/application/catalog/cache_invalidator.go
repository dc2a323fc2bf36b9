package catalog

import (
	"context"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DescendantCacheInvalidator purges cached descendant sets when the shape of
// the tree changes. Status changes and sibling swaps keep every set intact.
type DescendantCacheInvalidator struct {
	cache DescendantCache
}

// NewDescendantCacheInvalidator creates a new DescendantCacheInvalidator
func NewDescendantCacheInvalidator(cache DescendantCache) *DescendantCacheInvalidator {
	return &DescendantCacheInvalidator{cache: cache}
}

// EventTypes returns the events that can change a descendant set
func (h *DescendantCacheInvalidator) EventTypes() []string {
	return []string{
		catalog.EventTypeCategoryCreated,
		catalog.EventTypeCategoryUpdated,
		catalog.EventTypeCategoryDeleted,
	}
}

// Handle purges the cache for structural changes
func (h *DescendantCacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	if updated, ok := event.(*catalog.CategoryUpdatedEvent); ok && !updated.Reparented() {
		return nil
	}
	if err := h.cache.Purge(ctx); err != nil {
		return err
	}
	logger.L(ctx).Debug("Descendant cache purged",
		zap.String("event_type", event.EventType()),
		zap.Uint64("category_id", event.AggregateID()),
	)
	return nil
}
