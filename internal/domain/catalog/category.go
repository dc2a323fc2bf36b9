package catalog

import (
	"strconv"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"

	slug2 "github.com/gosimple/slug"
)

// MaxSortOrderRetries bounds how often an insert is retried after losing
// a race for the next sort order of a sibling group
const MaxSortOrderRetries = 3

// CategoryStatus represents the status of a category
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// IsValid reports whether s is a known status
func (s CategoryStatus) IsValid() bool {
	return s == CategoryStatusActive || s == CategoryStatusInactive
}

// Direction is the direction of a reorder step within a sibling group
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a move direction
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(raw))); d {
	case DirectionUp, DirectionDown:
		return d, nil
	default:
		return "", shared.NewValidationError("INVALID_DIRECTION", "Direction must be 'up' or 'down'")
	}
}

// Category represents a node of the catalog category tree.
// Categories sharing a ParentID form a sibling group ordered by SortOrder;
// roots share a nil ParentID.
type Category struct {
	shared.BaseAggregateRoot
	Name      string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_name"`
	Slug      string         `gorm:"type:varchar(120);not null;uniqueIndex:idx_categories_slug"`
	ParentID  *uint64        `gorm:"index;uniqueIndex:idx_categories_parent_sort,priority:1,where:parent_id IS NOT NULL"`
	Status    CategoryStatus `gorm:"type:varchar(20);not null;default:'active'"`
	SortOrder int            `gorm:"not null;default:0;uniqueIndex:idx_categories_parent_sort,priority:2,where:parent_id IS NOT NULL;uniqueIndex:idx_categories_root_sort,where:parent_id IS NULL"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a category that has not been persisted yet.
// An empty slug is derived from the name. The sort order is assigned by the
// repository on insert.
func NewCategory(name, slug string, parentID *uint64, status CategoryStatus) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = slug2.Make(name)
	}
	if err := validateCategorySlug(slug); err != nil {
		return nil, err
	}

	if status == "" {
		status = CategoryStatusActive
	}
	if !status.IsValid() {
		return nil, invalidStatusError()
	}

	return &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		ParentID:          parentID,
		Status:            status,
	}, nil
}

// Rename changes the category's name
func (c *Category) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return err
	}
	c.Name = name
	c.Touch()
	return nil
}

// ChangeSlug changes the category's slug
func (c *Category) ChangeSlug(slug string) error {
	slug = strings.TrimSpace(slug)
	if err := validateCategorySlug(slug); err != nil {
		return err
	}
	c.Slug = slug
	c.Touch()
	return nil
}

// SetStatus sets the status explicitly
func (c *Category) SetStatus(status CategoryStatus) error {
	if !status.IsValid() {
		return invalidStatusError()
	}
	c.changeStatus(status)
	return nil
}

// ToggleStatus flips active and inactive. Children are not affected.
func (c *Category) ToggleStatus() CategoryStatus {
	next := CategoryStatusActive
	if c.Status == CategoryStatusActive {
		next = CategoryStatusInactive
	}
	c.changeStatus(next)
	return c.Status
}

// changeStatus records the transition to a status known to be valid
func (c *Category) changeStatus(status CategoryStatus) {
	if c.Status == status {
		return
	}
	old := c.Status
	c.Status = status
	c.Touch()
	c.RecordEvent(NewCategoryStatusChangedEvent(c, old, status))
}

// Reparent moves the category into another sibling group.
// The caller is responsible for the acyclicity check, which needs the whole tree.
func (c *Category) Reparent(parentID *uint64) error {
	if parentID != nil && *parentID == c.ID {
		return ErrCircularReference
	}
	c.ParentID = parentID
	c.Touch()
	return nil
}

// SetSortOrder sets the display order of the category
func (c *Category) SetSortOrder(order int) error {
	if order < 0 {
		return shared.NewValidationError("INVALID_SORT_ORDER", "Sort order must be a non-negative integer")
	}
	c.SortOrder = order
	c.Touch()
	return nil
}

// IsActive returns true if the category is active
func (c *Category) IsActive() bool {
	return c.Status == CategoryStatusActive
}

// IsRoot returns true if this is a root category
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// SameParent reports whether two parent references denote the same sibling group
func SameParent(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ParseParentRef normalizes a raw parent reference.
// "", "null" and surrounding whitespace mean root and yield nil.
func ParseParentRef(raw string) (*uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, shared.NewValidationError("INVALID_PARENT_ID", "parent_id must be a positive integer or null")
	}
	return &id, nil
}

// ParseSortOrder coerces a raw sort order into a non-negative integer
func ParseSortOrder(raw string) (int, error) {
	order, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || order < 0 {
		return 0, shared.NewValidationError("INVALID_SORT_ORDER", "Sort order must be a non-negative integer")
	}
	return order, nil
}

// ParseCategoryStatus validates a raw status value
func ParseCategoryStatus(raw string) (CategoryStatus, error) {
	status := CategoryStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", invalidStatusError()
	}
	return status, nil
}

// Category errors shared by the service and the repository
var (
	ErrCategoryNotFound  = shared.NewNotFoundError("CATEGORY_NOT_FOUND", "Category not found")
	ErrInvalidParent     = shared.NewValidationError("INVALID_PARENT", "Parent category does not exist")
	ErrCircularReference = shared.NewReferentialError("CIRCULAR_REFERENCE", "A category cannot be moved under itself or one of its descendants")
	ErrDuplicateName     = shared.NewValidationError("DUPLICATE_NAME", "A category with this name already exists")
	ErrDuplicateSlug     = shared.NewValidationError("DUPLICATE_SLUG", "A category with this slug already exists")
	ErrDuplicateOrder    = shared.NewValidationError("DUPLICATE_SORT_ORDER", "Another category in this group already has this sort order")
	ErrHasProducts       = shared.NewReferentialError("HAS_PRODUCTS", "Cannot delete: products reference this category")
	ErrOrderContention   = &shared.DomainError{Kind: shared.KindConflict, Code: "SORT_ORDER_CONTENTION", Message: "Could not assign a sort order, please retry"}
)

func invalidStatusError() error {
	return shared.NewValidationError("INVALID_STATUS", "Status must be 'active' or 'inactive'")
}

// validateCategoryName validates the category name
func validateCategoryName(name string) error {
	if name == "" {
		return shared.NewValidationError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewValidationError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}

// validateCategorySlug validates the category slug
func validateCategorySlug(slug string) error {
	if slug == "" {
		return shared.NewValidationError("INVALID_SLUG", "Category slug cannot be empty")
	}
	if len(slug) > 120 {
		return shared.NewValidationError("INVALID_SLUG", "Category slug cannot exceed 120 characters")
	}
	if !slug2.IsSlug(slug) {
		return shared.NewValidationError("INVALID_SLUG", "Category slug may only contain lowercase letters, digits and single hyphens")
	}
	return nil
}
