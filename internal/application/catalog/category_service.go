package catalog

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DescendantCache stores resolved descendant sets keyed by their root.
// A set must be stored with the generation read before it was resolved.
type DescendantCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, generation, rootID uint64) ([]uint64, bool, error)
	Set(ctx context.Context, generation, rootID uint64, ids []uint64) error
	Purge(ctx context.Context) error
}

// ErrMoveFailed is returned when the sort order swap could not be committed
var ErrMoveFailed = shared.NewInternalError("MOVE_FAILED", "Failed to move category")

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	composer     *TreeComposer
	cache        DescendantCache
	events       shared.EventPublisher
	metrics      *telemetry.CatalogMetrics
	logger       *zap.Logger
}

// CategoryServiceOption configures optional collaborators of CategoryService
type CategoryServiceOption func(*CategoryService)

// WithDescendantCache caches descendant resolution results
func WithDescendantCache(cache DescendantCache) CategoryServiceOption {
	return func(s *CategoryService) {
		s.cache = cache
	}
}

// WithEventPublisher publishes category events after successful writes
func WithEventPublisher(publisher shared.EventPublisher) CategoryServiceOption {
	return func(s *CategoryService) {
		s.events = publisher
	}
}

// WithMetrics records cache and move counters
func WithMetrics(metrics *telemetry.CatalogMetrics) CategoryServiceOption {
	return func(s *CategoryService) {
		s.metrics = metrics
	}
}

// WithLogger sets the service logger
func WithLogger(log *zap.Logger) CategoryServiceOption {
	return func(s *CategoryService) {
		s.logger = log
	}
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
	opts ...CategoryServiceOption,
) *CategoryService {
	s := &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		composer:     NewTreeComposer(categoryRepo, productRepo),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new category at the end of its sibling group
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	parentID, err := catalog.ParseParentRef(req.ParentID.Raw)
	if err != nil {
		return nil, err
	}

	var status catalog.CategoryStatus
	if req.Status != "" {
		if status, err = catalog.ParseCategoryStatus(req.Status); err != nil {
			return nil, err
		}
	}

	category, err := catalog.NewCategory(req.Name, req.Slug, parentID, status)
	if err != nil {
		return nil, err
	}

	if err := s.ensureParentExists(ctx, parentID); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, category); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.publish(ctx, catalog.NewCategoryCreatedEvent(category))
	s.log(ctx).Info("Category created",
		zap.Uint64("category_id", category.ID),
		zap.String("slug", category.Slug),
		zap.Int("sort_order", category.SortOrder),
	)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Update applies a partial update. A parent change moves the category to the
// end of its new group unless the request also names a sort order.
func (s *CategoryService) Update(ctx context.Context, id uint64, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldParentID := category.ParentID

	if req.Name != nil {
		if err := category.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Slug != nil {
		if err := category.ChangeSlug(*req.Slug); err != nil {
			return nil, err
		}
	}
	if err := s.ensureUnique(ctx, category); err != nil {
		return nil, err
	}

	if req.Status != nil {
		status, err := catalog.ParseCategoryStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if err := category.SetStatus(status); err != nil {
			return nil, err
		}
	}

	reparented := false
	if req.ParentID.Present {
		parentID, err := catalog.ParseParentRef(req.ParentID.Raw)
		if err != nil {
			return nil, err
		}
		if !catalog.SameParent(parentID, category.ParentID) {
			if err := s.ensureValidParent(ctx, category.ID, parentID); err != nil {
				return nil, err
			}
			if err := category.Reparent(parentID); err != nil {
				return nil, err
			}
			reparented = true
		}
	}

	switch {
	case req.SortOrder.Present:
		order, err := catalog.ParseSortOrder(req.SortOrder.Raw)
		if err != nil {
			return nil, err
		}
		conflict, err := s.categoryRepo.FindConflict(ctx, category.ParentID, order, category.ID)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, catalog.ErrDuplicateOrder
		}
		if err := category.SetSortOrder(order); err != nil {
			return nil, err
		}
		err = s.categoryRepo.Save(ctx, category)
		if err != nil {
			return nil, err
		}
	case reparented:
		if err := s.categoryRepo.SaveWithNextOrder(ctx, category); err != nil {
			return nil, err
		}
	default:
		category.Touch()
		if err := s.categoryRepo.Save(ctx, category); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, category.PullEvents()...)
	s.publish(ctx, catalog.NewCategoryUpdatedEvent(category, oldParentID))

	s.log(ctx).Info("Category updated",
		zap.Uint64("category_id", category.ID),
		zap.Bool("reparented", reparented),
	)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Delete removes a category that no product references.
// Its children become roots placed after the existing roots.
func (s *CategoryService) Delete(ctx context.Context, id uint64) error {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	hasProducts, err := s.productRepo.ExistsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if hasProducts {
		return catalog.ErrHasProducts
	}

	promoted, err := s.categoryRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.publish(ctx, catalog.NewCategoryDeletedEvent(category, promoted))
	s.log(ctx).Info("Category deleted",
		zap.Uint64("category_id", id),
		zap.Int("promoted_children", len(promoted)),
	)
	return nil
}

// ToggleStatus flips a category between active and inactive.
// Children keep their own status.
func (s *CategoryService) ToggleStatus(ctx context.Context, id uint64) (*ToggleStatusResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := category.ToggleStatus()
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}

	s.publish(ctx, category.PullEvents()...)

	return &ToggleStatusResponse{ID: category.ID, Status: string(status)}, nil
}

// Get returns a category with its direct children
func (s *CategoryService) Get(ctx context.Context, id uint64) (*CategoryNode, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.composer.Compose(ctx, []catalog.Category{*category}, DefaultTreeDepth)
	if err != nil {
		return nil, err
	}
	return &nodes[0], nil
}

// List returns one page of a sibling group, roots unless a parent is given
func (s *CategoryService) List(ctx context.Context, filter CategoryListFilter) (shared.Paginated[CategoryNode], error) {
	parentID, err := catalog.ParseParentRef(filter.ParentID)
	if err != nil {
		return shared.Paginated[CategoryNode]{}, err
	}
	return s.list(ctx, parentID, filter)
}

// ListParents returns one page of root categories
func (s *CategoryService) ListParents(ctx context.Context, filter CategoryListFilter) (shared.Paginated[CategoryNode], error) {
	return s.list(ctx, nil, filter)
}

func (s *CategoryService) list(ctx context.Context, parentID *uint64, filter CategoryListFilter) (shared.Paginated[CategoryNode], error) {
	page := shared.Filter{Page: filter.Page, PageSize: filter.Limit}
	page.Normalize()

	domainFilter := catalog.CategoryFilter{
		ParentID: parentID,
		Search:   filter.Search,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	if filter.Status != "" {
		status, err := catalog.ParseCategoryStatus(filter.Status)
		if err != nil {
			return shared.Paginated[CategoryNode]{}, err
		}
		domainFilter.Status = status
	}

	categories, err := s.categoryRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[CategoryNode]{}, err
	}
	total, err := s.categoryRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[CategoryNode]{}, err
	}

	nodes, err := s.composer.Compose(ctx, categories, DefaultTreeDepth)
	if err != nil {
		return shared.Paginated[CategoryNode]{}, err
	}
	return shared.NewPaginated(nodes, total, page.Page, page.PageSize), nil
}

// Tree returns every root with its subtree down to depth levels.
// A depth of 0 returns the whole tree.
func (s *CategoryService) Tree(ctx context.Context, depth int) ([]CategoryNode, error) {
	roots, err := s.categoryRepo.FindRoots(ctx)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(ctx, roots, depth)
}

// Move swaps a category with its closest sibling in the given direction
func (s *CategoryService) Move(ctx context.Context, id uint64, req MoveCategoryRequest) (*MoveResult, error) {
	direction, err := catalog.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	neighbor, err := s.categoryRepo.FindAdjacentSibling(ctx, category, direction)
	if err != nil {
		return nil, err
	}
	if neighbor == nil {
		s.metrics.RecordMove(ctx, telemetry.MoveOutcomeEdge)
		return &MoveResult{Moved: false, Message: "Already at the edge"}, nil
	}

	if err := s.categoryRepo.SwapSortOrder(ctx, category, neighbor); err != nil {
		s.metrics.RecordMove(ctx, telemetry.MoveOutcomeFailed)
		s.log(ctx).Error("Failed to swap category sort order",
			zap.Uint64("category_id", category.ID),
			zap.Uint64("neighbor_id", neighbor.ID),
			zap.Error(err),
		)
		return nil, ErrMoveFailed
	}

	s.metrics.RecordMove(ctx, telemetry.MoveOutcomeMoved)
	s.publish(ctx, catalog.NewCategoryMovedEvent(category, neighbor, direction))

	return &MoveResult{
		Moved:   true,
		Message: "Category moved " + string(direction),
		Pair:    []CategoryResponse{ToCategoryResponse(category), ToCategoryResponse(neighbor)},
	}, nil
}

// SelfAndDescendantIDs returns id followed by every category below it.
// Results are served from the descendant cache when one is configured.
func (s *CategoryService) SelfAndDescendantIDs(ctx context.Context, id uint64) ([]uint64, error) {
	generation, cached := s.cacheGeneration(ctx, id)
	if cached {
		ids, ok, err := s.cache.Get(ctx, generation, id)
		switch {
		case err != nil:
			s.metrics.RecordCacheLookup(ctx, telemetry.CacheLookupError)
			s.log(ctx).Warn("Descendant cache read failed", zap.Uint64("category_id", id), zap.Error(err))
		case ok:
			s.metrics.RecordCacheLookup(ctx, telemetry.CacheLookupHit)
			return ids, nil
		default:
			s.metrics.RecordCacheLookup(ctx, telemetry.CacheLookupMiss)
		}
	}

	hierarchy, err := s.hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	ids := hierarchy.SelfAndDescendants(id)
	if ids == nil {
		return nil, catalog.ErrCategoryNotFound
	}

	if cached {
		if err := s.cache.Set(ctx, generation, id, ids); err != nil {
			s.log(ctx).Warn("Descendant cache write failed", zap.Uint64("category_id", id), zap.Error(err))
		}
	}
	return ids, nil
}

// cacheGeneration reads the generation a resolved set will be stored under.
// It reports false when there is no cache or the generation is unreadable.
func (s *CategoryService) cacheGeneration(ctx context.Context, id uint64) (uint64, bool) {
	if s.cache == nil {
		return 0, false
	}
	generation, err := s.cache.Generation(ctx)
	if err != nil {
		s.metrics.RecordCacheLookup(ctx, telemetry.CacheLookupError)
		s.log(ctx).Warn("Descendant cache unavailable", zap.Uint64("category_id", id), zap.Error(err))
		return 0, false
	}
	return generation, true
}

func (s *CategoryService) hierarchy(ctx context.Context) (*catalog.Hierarchy, error) {
	edges, err := s.categoryRepo.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewHierarchy(edges), nil
}

// ensureParentExists maps a missing parent to a validation error
func (s *CategoryService) ensureParentExists(ctx context.Context, parentID *uint64) error {
	if parentID == nil {
		return nil
	}
	_, err := s.categoryRepo.FindByID(ctx, *parentID)
	if errors.Is(err, catalog.ErrCategoryNotFound) {
		return catalog.ErrInvalidParent
	}
	return err
}

// ensureValidParent checks the parent exists and is not id or below it
func (s *CategoryService) ensureValidParent(ctx context.Context, id uint64, parentID *uint64) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return catalog.ErrCircularReference
	}
	if err := s.ensureParentExists(ctx, parentID); err != nil {
		return err
	}

	hierarchy, err := s.hierarchy(ctx)
	if err != nil {
		return err
	}
	if hierarchy.WouldCreateCycle(id, parentID) {
		return catalog.ErrCircularReference
	}
	return nil
}

// ensureUnique checks name and slug against every other category
func (s *CategoryService) ensureUnique(ctx context.Context, category *catalog.Category) error {
	taken, err := s.categoryRepo.ExistsByName(ctx, category.Name, category.ID)
	if err != nil {
		return err
	}
	if taken {
		return catalog.ErrDuplicateName
	}

	taken, err = s.categoryRepo.ExistsBySlug(ctx, category.Slug, category.ID)
	if err != nil {
		return err
	}
	if taken {
		return catalog.ErrDuplicateSlug
	}
	return nil
}

func (s *CategoryService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.log(ctx).Warn("Failed to publish category events", zap.Error(err))
	}
}

// log returns the service logger enriched with request and trace ids
func (s *CategoryService) log(ctx context.Context) *zap.Logger {
	return s.logger.With(logger.ContextFields(ctx)...)
}
