package catalog

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// DescendantResolver resolves a category and everything below it
type DescendantResolver interface {
	SelfAndDescendantIDs(ctx context.Context, id uint64) ([]uint64, error)
}

// ProductService handles the product operations the category tree depends on
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	resolver     DescendantResolver
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	resolver DescendantResolver,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		resolver:     resolver,
	}
}

// Create creates a new product, optionally in a category
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, req.SKU, req.Price, req.CategoryID)
	if err != nil {
		return nil, err
	}

	if product.HasCategory() {
		if _, err := s.categoryRepo.FindByID(ctx, *product.CategoryID); err != nil {
			if errors.Is(err, catalog.ErrCategoryNotFound) {
				return nil, catalog.ErrInvalidCategory
			}
			return nil, err
		}
	}

	exists, err := s.productRepo.ExistsBySKU(ctx, product.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, catalog.ErrDuplicateSKU
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// List returns one page of products. With Descendants set, a category filter
// matches the category and every category below it; otherwise it is exact.
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	page := shared.Filter{Page: filter.Page, PageSize: filter.Limit}
	page.Normalize()

	domainFilter := catalog.ProductFilter{
		Page:     page.Page,
		PageSize: page.PageSize,
		OrderBy:  filter.SortBy,
		OrderDir: filter.SortOrder,
	}

	if filter.CategoryID != nil {
		if filter.Descendants {
			ids, err := s.resolver.SelfAndDescendantIDs(ctx, *filter.CategoryID)
			if err != nil {
				return shared.Paginated[ProductResponse]{}, err
			}
			domainFilter.CategoryIDs = ids
		} else {
			domainFilter.CategoryIDs = []uint64{*filter.CategoryID}
		}
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i])
	}
	return shared.NewPaginated(items, total, page.Page, page.PageSize), nil
}
