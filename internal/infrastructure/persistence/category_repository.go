package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"gorm.io/gorm"
)

// reparentLockKey is the postgres advisory lock serializing parent changes
const reparentLockKey int64 = 0x63617465676f7279

// lineageQuery counts id among parentID and its ancestors. UNION keeps the
// walk finite even on cyclic rows.
const lineageQuery = `WITH RECURSIVE lineage(id, parent_id) AS (
	SELECT id, parent_id FROM categories WHERE id = ?
	UNION
	SELECT c.id, c.parent_id FROM categories c JOIN lineage l ON c.id = l.parent_id
)
SELECT COUNT(*) FROM lineage WHERE id = ?`

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db      *gorm.DB
	metrics *telemetry.CatalogMetrics
}

// CategoryRepositoryOption configures a GormCategoryRepository
type CategoryRepositoryOption func(*GormCategoryRepository)

// WithCategoryMetrics counts sort order retries
func WithCategoryMetrics(metrics *telemetry.CatalogMetrics) CategoryRepositoryOption {
	return func(r *GormCategoryRepository) {
		r.metrics = metrics
	}
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB, opts ...CategoryRepositoryOption) *GormCategoryRepository {
	r := &GormCategoryRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// siblingsOf scopes a query to one sibling group
func siblingsOf(parentID *uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if parentID == nil {
			return db.Where("parent_id IS NULL")
		}
		return db.Where("parent_id = ?", *parentID)
	}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uint64) (*catalog.Category, error) {
	var category catalog.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category %d: %w", id, err)
	}
	return &category, nil
}

// FindAll finds all categories matching the filter
func (r *GormCategoryRepository) FindAll(ctx context.Context, filter catalog.CategoryFilter) ([]catalog.Category, error) {
	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}
	page.Normalize()

	var categories []catalog.Category
	err := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Category{}), filter).
		Order("sort_order ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Count counts categories matching the filter
func (r *GormCategoryRepository) Count(ctx context.Context, filter catalog.CategoryFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Category{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}

// applyFilter applies filter conditions to the query
func (r *GormCategoryRepository) applyFilter(query *gorm.DB, filter catalog.CategoryFilter) *gorm.DB {
	query = query.Scopes(siblingsOf(filter.ParentID))

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(slug) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	return query
}

// likeEscaper makes LIKE wildcards in user input match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// FindRoots finds every root category ordered by sort order
func (r *GormCategoryRepository) FindRoots(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).
		Scopes(siblingsOf(nil)).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list root categories: %w", err)
	}
	return categories, nil
}

// FindByParentIDs finds the direct children of the given categories
func (r *GormCategoryRepository) FindByParentIDs(ctx context.Context, parentIDs []uint64) ([]catalog.Category, error) {
	if len(parentIDs) == 0 {
		return []catalog.Category{}, nil
	}
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id ASC, sort_order ASC, id ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list child categories: %w", err)
	}
	return categories, nil
}

// ExistsByName checks if another category uses the name
func (r *GormCategoryRepository) ExistsByName(ctx context.Context, name string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "name", name, excludeID)
}

// ExistsBySlug checks if another category uses the slug
func (r *GormCategoryRepository) ExistsBySlug(ctx context.Context, slug string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "slug", slug, excludeID)
}

func (r *GormCategoryRepository) exists(ctx context.Context, column, value string, excludeID uint64) (bool, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Category{}).Where(column+" = ?", value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check category %s: %w", column, err)
	}
	return count > 0, nil
}

// NextSortOrder returns the next free sort order of a sibling group
func (r *GormCategoryRepository) NextSortOrder(ctx context.Context, parentID *uint64) (int, error) {
	return nextSortOrder(r.db.WithContext(ctx), parentID)
}

func nextSortOrder(tx *gorm.DB, parentID *uint64) (int, error) {
	var current int
	err := tx.Model(&catalog.Category{}).
		Scopes(siblingsOf(parentID)).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("compute next sort order: %w", err)
	}
	return current + 1, nil
}

// Create inserts the category at the end of its sibling group.
// A concurrent insert taking the same order is retried with a fresh value.
func (r *GormCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	return r.withOrderRetry(ctx, category, func(tx *gorm.DB) error {
		next, err := nextSortOrder(tx, category.ParentID)
		if err != nil {
			return err
		}
		category.SortOrder = next
		category.ID = 0
		return tx.Create(category).Error
	})
}

// Save persists the category's mutable columns. A parent change is checked
// for cycles in the same transaction.
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guardLineage(tx, category); err != nil {
			return err
		}
		return updateCategory(tx, category)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.classifyDuplicate(ctx, category, catalog.ErrDuplicateOrder)
	}
	return err
}

// SaveWithNextOrder persists the category at the end of its sibling group
func (r *GormCategoryRepository) SaveWithNextOrder(ctx context.Context, category *catalog.Category) error {
	return r.withOrderRetry(ctx, category, func(tx *gorm.DB) error {
		if err := guardLineage(tx, category); err != nil {
			return err
		}
		next, err := nextSortOrder(tx, category.ParentID)
		if err != nil {
			return err
		}
		category.SortOrder = next
		return updateCategory(tx, category)
	})
}

// guardLineage rejects a new parent that is the category itself or one of its
// descendants. On postgres, parent changes take a transaction-scoped advisory
// lock first so two opposing moves cannot both pass the check; the check then
// sees every parent change committed before the lock was granted.
func guardLineage(tx *gorm.DB, category *catalog.Category) error {
	if category.ParentID == nil {
		return nil
	}

	var stored sql.NullInt64
	err := tx.Raw("SELECT parent_id FROM categories WHERE id = ?", category.ID).Row().Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("read parent of category %d: %w", category.ID, err)
	}
	if stored.Valid && uint64(stored.Int64) == *category.ParentID {
		return nil
	}

	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", reparentLockKey).Error; err != nil {
			return fmt.Errorf("lock category lineage: %w", err)
		}
	}

	var hits int64
	if err := tx.Raw(lineageQuery, *category.ParentID, category.ID).Scan(&hits).Error; err != nil {
		return fmt.Errorf("check category lineage: %w", err)
	}
	if hits > 0 {
		return catalog.ErrCircularReference
	}
	return nil
}

func updateCategory(tx *gorm.DB, category *catalog.Category) error {
	category.Touch()
	result := tx.Model(&catalog.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"name":       category.Name,
			"slug":       category.Slug,
			"parent_id":  category.ParentID,
			"status":     category.Status,
			"sort_order": category.SortOrder,
			"updated_at": category.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

// withOrderRetry runs write in a transaction, retrying sort order collisions.
// Collisions on name or slug are reported as validation errors right away.
func (r *GormCategoryRepository) withOrderRetry(ctx context.Context, category *catalog.Category, write func(tx *gorm.DB) error) error {
	for attempt := 1; attempt <= catalog.MaxSortOrderRetries; attempt++ {
		if attempt > 1 {
			r.metrics.RecordSortOrderRetry(ctx)
		}
		err := r.db.WithContext(ctx).Transaction(write)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				return err
			}
			return fmt.Errorf("save category: %w", err)
		}
		if dupErr := r.classifyDuplicate(ctx, category, nil); dupErr != nil {
			return dupErr
		}
	}
	r.metrics.RecordSortOrderContention(ctx)
	return catalog.ErrOrderContention
}

// classifyDuplicate tells which unique constraint a write violated.
// It returns fallback when neither name nor slug is taken.
func (r *GormCategoryRepository) classifyDuplicate(ctx context.Context, category *catalog.Category, fallback error) error {
	taken, err := r.ExistsByName(ctx, category.Name, category.ID)
	if err != nil {
		return err
	}
	if taken {
		return catalog.ErrDuplicateName
	}
	taken, err = r.ExistsBySlug(ctx, category.Slug, category.ID)
	if err != nil {
		return err
	}
	if taken {
		return catalog.ErrDuplicateSlug
	}
	return fallback
}

// FindConflict finds a sibling other than excludeID holding sortOrder
func (r *GormCategoryRepository) FindConflict(ctx context.Context, parentID *uint64, sortOrder int, excludeID uint64) (*catalog.Category, error) {
	query := r.db.WithContext(ctx).
		Scopes(siblingsOf(parentID)).
		Where("sort_order = ?", sortOrder)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	return firstOrNil(query)
}

// FindAdjacentSibling finds the closest sibling in the given direction
func (r *GormCategoryRepository) FindAdjacentSibling(ctx context.Context, category *catalog.Category, direction catalog.Direction) (*catalog.Category, error) {
	query := r.db.WithContext(ctx).
		Scopes(siblingsOf(category.ParentID)).
		Where("id <> ?", category.ID)

	switch direction {
	case catalog.DirectionUp:
		query = query.Where("sort_order < ?", category.SortOrder).Order("sort_order DESC, id DESC")
	case catalog.DirectionDown:
		query = query.Where("sort_order > ?", category.SortOrder).Order("sort_order ASC, id ASC")
	default:
		return nil, shared.NewValidationError("INVALID_DIRECTION", "Direction must be 'up' or 'down'")
	}
	return firstOrNil(query)
}

func firstOrNil(query *gorm.DB) (*catalog.Category, error) {
	var category catalog.Category
	err := query.Limit(1).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find sibling: %w", err)
	}
	return &category, nil
}

// SwapSortOrder exchanges the sort orders of two siblings in one transaction.
// a is parked at a negative order first so neither write collides with the
// sibling index. Each write checks the row still holds the order that was
// read; a concurrent change rolls the swap back.
func (r *GormCategoryRepository) SwapSortOrder(ctx context.Context, a, b *catalog.Category) error {
	aOrder, bOrder := a.SortOrder, b.SortOrder
	parked := -int(a.ID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setSortOrder(tx, a.ID, aOrder, parked); err != nil {
			return err
		}
		if err := setSortOrder(tx, b.ID, bOrder, aOrder); err != nil {
			return err
		}
		return setSortOrder(tx, a.ID, parked, bOrder)
	})
	if err != nil {
		return fmt.Errorf("swap sort order of %d and %d: %w", a.ID, b.ID, err)
	}

	a.SortOrder, b.SortOrder = bOrder, aOrder
	a.Touch()
	b.Touch()
	return nil
}

func setSortOrder(tx *gorm.DB, id uint64, from, to int) error {
	result := tx.Model(&catalog.Category{}).
		Where("id = ? AND sort_order = ?", id, from).
		Update("sort_order", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete promotes the category's children to roots and removes it.
// Promoted children keep their relative order after the current last root.
func (r *GormCategoryRepository) Delete(ctx context.Context, id uint64) ([]uint64, error) {
	var promoted []uint64

	for attempt := 1; attempt <= catalog.MaxSortOrderRetries; attempt++ {
		if attempt > 1 {
			r.metrics.RecordSortOrderRetry(ctx)
		}
		promoted = nil
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var children []catalog.Category
			if err := tx.Where("parent_id = ?", id).
				Order("sort_order ASC, id ASC").
				Find(&children).Error; err != nil {
				return err
			}

			if len(children) > 0 {
				next, err := nextSortOrder(tx, nil)
				if err != nil {
					return err
				}
				for i, child := range children {
					if err := tx.Model(&catalog.Category{}).
						Where("id = ?", child.ID).
						Updates(map[string]any{"parent_id": nil, "sort_order": next + i}).Error; err != nil {
						return err
					}
					promoted = append(promoted, child.ID)
				}
			}

			result := tx.Delete(&catalog.Category{}, "id = ?", id)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return catalog.ErrCategoryNotFound
			}
			return nil
		})

		switch {
		case err == nil:
			return promoted, nil
		case errors.Is(err, gorm.ErrDuplicatedKey):
			continue
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return nil, catalog.ErrHasProducts
		case errors.Is(err, catalog.ErrCategoryNotFound):
			return nil, err
		default:
			return nil, fmt.Errorf("delete category %d: %w", id, err)
		}
	}
	r.metrics.RecordSortOrderContention(ctx)
	return nil, catalog.ErrOrderContention
}

// ListEdges loads every parent pointer in one query
func (r *GormCategoryRepository) ListEdges(ctx context.Context) ([]catalog.Edge, error) {
	var edges []catalog.Edge
	if err := r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Select("id", "parent_id").
		Order("sort_order ASC, id ASC").
		Scan(&edges).Error; err != nil {
		return nil, fmt.Errorf("list category edges: %w", err)
	}
	return edges, nil
}

// Ensure GormCategoryRepository implements CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
