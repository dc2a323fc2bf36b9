package catalog

import (
	"context"
)

// CategoryFilter narrows category list queries.
// A nil ParentID selects root categories.
type CategoryFilter struct {
	ParentID *uint64
	Status   CategoryStatus
	Search   string
	Page     int
	PageSize int
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByID finds a category by its ID
	FindByID(ctx context.Context, id uint64) (*Category, error)

	// FindAll finds the categories of one sibling group matching the filter,
	// ordered by sort order
	FindAll(ctx context.Context, filter CategoryFilter) ([]Category, error)

	// Count counts the categories matching the filter
	Count(ctx context.Context, filter CategoryFilter) (int64, error)

	// FindRoots finds every root category ordered by sort order
	FindRoots(ctx context.Context) ([]Category, error)

	// FindByParentIDs finds the direct children of the given categories,
	// ordered by parent then sort order
	FindByParentIDs(ctx context.Context, parentIDs []uint64) ([]Category, error)

	// ExistsByName checks whether another category uses the name
	ExistsByName(ctx context.Context, name string, excludeID uint64) (bool, error)

	// ExistsBySlug checks whether another category uses the slug
	ExistsBySlug(ctx context.Context, slug string, excludeID uint64) (bool, error)

	// NextSortOrder returns max(sort_order)+1 of the sibling group, or 1 when empty
	NextSortOrder(ctx context.Context, parentID *uint64) (int, error)

	// Create inserts the category with the next sort order of its sibling group.
	// Computing the order and inserting happen in one transaction.
	Create(ctx context.Context, category *Category) error

	// Save persists changes to an existing category as they are
	Save(ctx context.Context, category *Category) error

	// SaveWithNextOrder persists changes and moves the category to the end of
	// its (possibly new) sibling group in one transaction
	SaveWithNextOrder(ctx context.Context, category *Category) error

	// FindConflict finds a sibling other than excludeID holding sortOrder.
	// It returns nil when there is none.
	FindConflict(ctx context.Context, parentID *uint64, sortOrder int, excludeID uint64) (*Category, error)

	// FindAdjacentSibling finds the closest sibling before (up) or after (down)
	// the category. It returns nil when the category is at the edge.
	FindAdjacentSibling(ctx context.Context, category *Category, direction Direction) (*Category, error)

	// SwapSortOrder exchanges the sort orders of two siblings atomically
	SwapSortOrder(ctx context.Context, a, b *Category) error

	// Delete removes the category after promoting its children to roots.
	// It returns the ids of the promoted children.
	Delete(ctx context.Context, id uint64) ([]uint64, error)

	// ListEdges loads every (id, parent_id) pair in one query
	ListEdges(ctx context.Context) ([]Edge, error)
}
