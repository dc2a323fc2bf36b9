package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is the minimal product record the category tree depends on:
// it is counted per category and scopes subtree listings.
type Product struct {
	shared.BaseEntity
	Name       string          `gorm:"type:varchar(200);not null"`
	SKU        string          `gorm:"column:sku;type:varchar(50);not null;uniqueIndex:idx_products_sku"`
	Price      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CategoryID *uint64         `gorm:"index"`
	Category   *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Status     ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(name, sku string, price decimal.Decimal, categoryID *uint64) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if err := validateProductSKU(sku); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Price cannot be negative")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		SKU:        sku,
		Price:      price.Round(2),
		CategoryID: categoryID,
		Status:     ProductStatusActive,
	}, nil
}

// HasCategory returns true if the product is assigned to a category
func (p *Product) HasCategory() bool {
	return p.CategoryID != nil
}

// Product errors
var (
	ErrDuplicateSKU    = shared.NewValidationError("DUPLICATE_SKU", "A product with this SKU already exists")
	ErrInvalidCategory = shared.NewValidationError("INVALID_CATEGORY", "Category does not exist")
)

// validateProductSKU validates the product SKU
func validateProductSKU(sku string) error {
	if sku == "" {
		return shared.NewValidationError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewValidationError("INVALID_SKU", "Product SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewValidationError("INVALID_SKU", "Product SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewValidationError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
