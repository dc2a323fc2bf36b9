package catalog

import (
	"context"
)

// ProductFilter narrows product list queries.
// A nil CategoryIDs matches every product; an empty non-nil slice matches none.
type ProductFilter struct {
	CategoryIDs []uint64
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// Create inserts a product
	Create(ctx context.Context, product *Product) error

	// FindAll finds the products matching the filter, newest first unless
	// OrderBy names another column
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Count counts the products matching the filter
	Count(ctx context.Context, filter ProductFilter) (int64, error)

	// ExistsBySKU checks whether a product uses the SKU
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// ExistsByCategory checks whether any product references the category
	ExistsByCategory(ctx context.Context, categoryID uint64) (bool, error)

	// CountByCategories counts products per category in one grouped query.
	// Categories without products are absent from the result.
	CountByCategories(ctx context.Context, categoryIDs []uint64) (map[uint64]int64, error)
}
