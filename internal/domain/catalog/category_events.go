package catalog

import (
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCategory = "Category"

// Event type constants
const (
	EventTypeCategoryCreated       = "CategoryCreated"
	EventTypeCategoryUpdated       = "CategoryUpdated"
	EventTypeCategoryMoved         = "CategoryMoved"
	EventTypeCategoryStatusChanged = "CategoryStatusChanged"
	EventTypeCategoryDeleted       = "CategoryDeleted"
)

// CategoryEventTypes lists every event a category aggregate can raise
var CategoryEventTypes = []string{
	EventTypeCategoryCreated,
	EventTypeCategoryUpdated,
	EventTypeCategoryMoved,
	EventTypeCategoryStatusChanged,
	EventTypeCategoryDeleted,
}

// CategoryCreatedEvent is published when a new category is created
type CategoryCreatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uint64  `json:"category_id"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	ParentID   *uint64 `json:"parent_id,omitempty"`
	SortOrder  int     `json:"sort_order"`
}

// NewCategoryCreatedEvent creates a new CategoryCreatedEvent
func NewCategoryCreatedEvent(category *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryCreated, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
		ParentID:        category.ParentID,
		SortOrder:       category.SortOrder,
	}
}

// CategoryUpdatedEvent is published when a category is updated.
// OldParentID and NewParentID differ when the category was reparented.
type CategoryUpdatedEvent struct {
	shared.BaseDomainEvent
	CategoryID  uint64  `json:"category_id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	OldParentID *uint64 `json:"old_parent_id,omitempty"`
	NewParentID *uint64 `json:"new_parent_id,omitempty"`
	SortOrder   int     `json:"sort_order"`
}

// NewCategoryUpdatedEvent creates a new CategoryUpdatedEvent
func NewCategoryUpdatedEvent(category *Category, oldParentID *uint64) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryUpdated, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
		OldParentID:     oldParentID,
		NewParentID:     category.ParentID,
		SortOrder:       category.SortOrder,
	}
}

// Reparented reports whether the update changed the category's sibling group
func (e *CategoryUpdatedEvent) Reparented() bool {
	return !SameParent(e.OldParentID, e.NewParentID)
}

// CategoryMovedEvent is published when a category swaps position with a sibling
type CategoryMovedEvent struct {
	shared.BaseDomainEvent
	CategoryID   uint64    `json:"category_id"`
	NeighborID   uint64    `json:"neighbor_id"`
	Direction    Direction `json:"direction"`
	OldSortOrder int       `json:"old_sort_order"`
	NewSortOrder int       `json:"new_sort_order"`
}

// NewCategoryMovedEvent creates a new CategoryMovedEvent
func NewCategoryMovedEvent(category, neighbor *Category, direction Direction) *CategoryMovedEvent {
	return &CategoryMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryMoved, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		NeighborID:      neighbor.ID,
		Direction:       direction,
		OldSortOrder:    neighbor.SortOrder,
		NewSortOrder:    category.SortOrder,
	}
}

// CategoryStatusChangedEvent is published when a category's status changes
type CategoryStatusChangedEvent struct {
	shared.BaseDomainEvent
	CategoryID uint64         `json:"category_id"`
	OldStatus  CategoryStatus `json:"old_status"`
	NewStatus  CategoryStatus `json:"new_status"`
}

// NewCategoryStatusChangedEvent creates a new CategoryStatusChangedEvent
func NewCategoryStatusChangedEvent(category *Category, oldStatus, newStatus CategoryStatus) *CategoryStatusChangedEvent {
	return &CategoryStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryStatusChanged, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// CategoryDeletedEvent is published when a category is deleted
type CategoryDeletedEvent struct {
	shared.BaseDomainEvent
	CategoryID       uint64   `json:"category_id"`
	ParentID         *uint64  `json:"parent_id,omitempty"`
	PromotedChildIDs []uint64 `json:"promoted_child_ids,omitempty"`
}

// NewCategoryDeletedEvent creates a new CategoryDeletedEvent
func NewCategoryDeletedEvent(category *Category, promoted []uint64) *CategoryDeletedEvent {
	return &CategoryDeletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCategoryDeleted, AggregateTypeCategory, category.ID),
		CategoryID:       category.ID,
		ParentID:         category.ParentID,
		PromotedChildIDs: promoted,
	}
}
