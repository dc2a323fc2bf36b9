package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Create inserts a product
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	err := r.db.WithContext(ctx).Omit("Category").Create(product).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return catalog.ErrDuplicateSKU
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return catalog.ErrInvalidCategory
	default:
		return fmt.Errorf("create product: %w", err)
	}
}

// FindAll finds all products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	if matchesNothing(filter) {
		return []catalog.Product{}, nil
	}

	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}
	page.Normalize()

	var products []catalog.Product
	err := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Product{}), filter).
		Order(productSort.clause(filter.OrderBy, filter.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter catalog.ProductFilter) (int64, error) {
	if matchesNothing(filter) {
		return 0, nil
	}
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Product{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func matchesNothing(filter catalog.ProductFilter) bool {
	return filter.CategoryIDs != nil && len(filter.CategoryIDs) == 0
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter catalog.ProductFilter) *gorm.DB {
	if len(filter.CategoryIDs) > 0 {
		query = query.Where("category_id IN ?", filter.CategoryIDs)
	}
	return query
}

// ExistsBySKU checks if a product uses the SKU
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("sku = ?", sku).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check product sku: %w", err)
	}
	return count > 0, nil
}

// ExistsByCategory checks if any product references the category
func (r *GormProductRepository) ExistsByCategory(ctx context.Context, categoryID uint64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check category products: %w", err)
	}
	return count > 0, nil
}

// CountByCategories counts products per category in one grouped query
func (r *GormProductRepository) CountByCategories(ctx context.Context, categoryIDs []uint64) (map[uint64]int64, error) {
	counts := make(map[uint64]int64, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CategoryID uint64
		Total      int64
	}
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IN ?", categoryIDs).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count products by category: %w", err)
	}

	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
