package catalog

import (
	"context"

	"github.com/storefront/backend/internal/domain/catalog"
)

// TreeComposer shapes categories into nested nodes with product counts
type TreeComposer struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
}

// NewTreeComposer creates a new TreeComposer
func NewTreeComposer(categoryRepo catalog.CategoryRepository, productRepo catalog.ProductRepository) *TreeComposer {
	return &TreeComposer{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

// Compose attaches children to each root, level by level, down to maxDepth
// levels including the roots. A maxDepth of 0 or less walks the whole subtree.
// Children keep their sibling order. Product counts for every composed node
// come from a single grouped query.
func (c *TreeComposer) Compose(ctx context.Context, roots []catalog.Category, maxDepth int) ([]CategoryNode, error) {
	if len(roots) == 0 {
		return []CategoryNode{}, nil
	}

	seen := make(map[uint64]struct{}, len(roots))
	ids := make([]uint64, 0, len(roots))
	for _, root := range roots {
		seen[root.ID] = struct{}{}
		ids = append(ids, root.ID)
	}

	children := make(map[uint64][]catalog.Category)
	frontier := ids
	for depth := 1; len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth); depth++ {
		level, err := c.categoryRepo.FindByParentIDs(ctx, frontier)
		if err != nil {
			return nil, err
		}

		next := make([]uint64, 0, len(level))
		for _, child := range level {
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			children[*child.ParentID] = append(children[*child.ParentID], child)
			next = append(next, child.ID)
		}
		ids = append(ids, next...)
		frontier = next
	}

	counts, err := c.productRepo.CountByCategories(ctx, ids)
	if err != nil {
		return nil, err
	}

	nodes := make([]CategoryNode, len(roots))
	for i := range roots {
		nodes[i] = buildNode(&roots[i], children, counts)
	}
	return nodes, nil
}

func buildNode(category *catalog.Category, children map[uint64][]catalog.Category, counts map[uint64]int64) CategoryNode {
	node := CategoryNode{
		CategoryResponse: ToCategoryResponse(category),
		ProductsCount:    counts[category.ID],
		Children:         make([]CategoryNode, 0, len(children[category.ID])),
	}
	for i := range children[category.ID] {
		node.Children = append(node.Children, buildNode(&children[category.ID][i], children, counts))
	}
	return node
}
