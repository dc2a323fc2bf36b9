package catalog

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultTreeDepth is the depth of tree-shaped reads: a node and its direct children
const DefaultTreeDepth = 2

// LooseValue holds a JSON scalar that clients send either as a number or as a
// string, or as null. Present is false when the key was absent.
type LooseValue struct {
	Present bool
	Raw     string
}

// UnmarshalJSON accepts numbers, strings and null
func (v *LooseValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	v.Present = true

	switch {
	case bytes.Equal(data, []byte("null")):
		v.Raw = "null"
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &v.Raw)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return shared.NewValidationError("INVALID_VALUE", "value must be a number, a string or null")
		}
		v.Raw = n.String()
		return nil
	}
}

// Loose returns a present LooseValue holding raw
func Loose(raw string) LooseValue {
	return LooseValue{Present: true, Raw: raw}
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name     string     `json:"name" binding:"required,max=100"`
	Slug     string     `json:"slug" binding:"max=120"`
	ParentID LooseValue `json:"parent_id"`
	Status   string     `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateCategoryRequest represents a partial update of a category.
// Nil and absent fields are left unchanged.
type UpdateCategoryRequest struct {
	Name      *string    `json:"name" binding:"omitempty,max=100"`
	Slug      *string    `json:"slug" binding:"omitempty,max=120"`
	ParentID  LooseValue `json:"parent_id"`
	Status    *string    `json:"status" binding:"omitempty,oneof=active inactive"`
	SortOrder LooseValue `json:"sort_order"`
}

// MoveCategoryRequest represents a request to swap a category with a neighbor
type MoveCategoryRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// CategoryListFilter represents the query of category list reads
type CategoryListFilter struct {
	ParentID string `form:"parent_id"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *uint64   `json:"parent_id"`
	Status    string    `json:"status"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryNode is a category with its product count and nested children
type CategoryNode struct {
	CategoryResponse
	ProductsCount int64          `json:"productsCount"`
	Children      []CategoryNode `json:"children"`
}

// ToggleStatusResponse is the result of flipping a category's status
type ToggleStatusResponse struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// MoveResult is the result of a move request. Moved is false when the
// category was already first or last in its group.
type MoveResult struct {
	Moved   bool
	Message string
	Pair    []CategoryResponse
}

// DescendantsResponse lists a category and everything below it
type DescendantsResponse struct {
	ID  uint64   `json:"id"`
	IDs []uint64 `json:"ids"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		ParentID:  c.ParentID,
		Status:    string(c.Status),
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name       string          `json:"name" binding:"required,max=200"`
	SKU        string          `json:"sku" binding:"required,max=50"`
	Price      decimal.Decimal `json:"price"`
	CategoryID *uint64         `json:"category_id"`
}

// ProductListFilter represents the query of product list reads
type ProductListFilter struct {
	CategoryID  *uint64 `form:"category_id"`
	Descendants bool    `form:"descendants"`
	Page        int     `form:"page"`
	Limit       int     `form:"limit"`
	SortBy      string  `form:"sort_by"`
	SortOrder   string  `form:"sort_order"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	CategoryID *uint64         `json:"category_id"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		SKU:        p.SKU,
		Price:      p.Price,
		CategoryID: p.CategoryID,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
