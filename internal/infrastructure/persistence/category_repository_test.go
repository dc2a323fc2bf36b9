package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCategoryRepo(t *testing.T) (*GormCategoryRepository, *gorm.DB) {
	db := testutil.NewSQLiteDB(t)
	return NewGormCategoryRepository(db), db
}

func createCategory(t *testing.T, repo *GormCategoryRepository, name string, parentID *uint64) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(name, "", parentID, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func siblingOrders(t *testing.T, repo *GormCategoryRepository, parentID *uint64) map[uint64]int {
	t.Helper()
	items, err := repo.FindAll(context.Background(), catalog.CategoryFilter{ParentID: parentID, PageSize: shared.MaxLimit})
	require.NoError(t, err)
	orders := make(map[uint64]int, len(items))
	for _, c := range items {
		orders[c.ID] = c.SortOrder
	}
	return orders
}

func assertUniqueOrders(t *testing.T, orders map[uint64]int) {
	t.Helper()
	seen := make(map[int]uint64)
	for id, order := range orders {
		if other, ok := seen[order]; ok {
			t.Fatalf("categories %d and %d share sort order %d", id, other, order)
		}
		seen[order] = id
	}
}

func TestGormCategoryRepository_CreateAssignsNextOrder(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	electronics := createCategory(t, repo, "Electronics", nil)
	tools := createCategory(t, repo, "Tools", nil)
	assert.Equal(t, 1, electronics.SortOrder)
	assert.Equal(t, 2, tools.SortOrder)
	assert.NotZero(t, electronics.ID)

	sensors := createCategory(t, repo, "Sensors", &electronics.ID)
	assert.Equal(t, 1, sensors.SortOrder, "first child starts a new group at 1")

	next, err := repo.NextSortOrder(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	next, err = repo.NextSortOrder(ctx, &tools.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestGormCategoryRepository_CreateDuplicates(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()
	createCategory(t, repo, "Electronics", nil)

	t.Run("duplicate name", func(t *testing.T) {
		c, err := catalog.NewCategory("Electronics", "electronics-2", nil, "")
		require.NoError(t, err)
		err = repo.Create(ctx, c)
		assert.ErrorIs(t, err, catalog.ErrDuplicateName)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		c, err := catalog.NewCategory("Electronics 2", "electronics", nil, "")
		require.NoError(t, err)
		err = repo.Create(ctx, c)
		assert.ErrorIs(t, err, catalog.ErrDuplicateSlug)
	})
}

func TestGormCategoryRepository_FindByID(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()
	created := createCategory(t, repo, "Electronics", nil)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Electronics", found.Name)
	assert.Equal(t, "electronics", found.Slug)
	assert.Nil(t, found.ParentID)
	assert.Equal(t, catalog.CategoryStatusActive, found.Status)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestGormCategoryRepository_FindAllFilters(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	electronics := createCategory(t, repo, "Electronics", nil)
	createCategory(t, repo, "Garden Tools", nil)
	createCategory(t, repo, "Sensors", &electronics.ID)
	inactive := createCategory(t, repo, "Outlet", nil)
	inactive.ToggleStatus()
	require.NoError(t, repo.Save(ctx, inactive))

	t.Run("nil parent lists roots only", func(t *testing.T) {
		items, err := repo.FindAll(ctx, catalog.CategoryFilter{})
		require.NoError(t, err)
		require.Len(t, items, 3)
		for _, c := range items {
			assert.Nil(t, c.ParentID)
		}
		assert.Equal(t, "Electronics", items[0].Name)
	})

	t.Run("explicit parent lists children", func(t *testing.T) {
		items, err := repo.FindAll(ctx, catalog.CategoryFilter{ParentID: &electronics.ID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Sensors", items[0].Name)
	})

	t.Run("search is case insensitive on name and slug", func(t *testing.T) {
		items, err := repo.FindAll(ctx, catalog.CategoryFilter{Search: "TOOLS"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Garden Tools", items[0].Name)

		count, err := repo.Count(ctx, catalog.CategoryFilter{Search: "garden-"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("status", func(t *testing.T) {
		count, err := repo.Count(ctx, catalog.CategoryFilter{Status: catalog.CategoryStatusInactive})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("pagination", func(t *testing.T) {
		items, err := repo.FindAll(ctx, catalog.CategoryFilter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Outlet", items[0].Name)
	})
}

func TestGormCategoryRepository_Exists(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()
	c := createCategory(t, repo, "Electronics", nil)

	taken, err := repo.ExistsByName(ctx, "Electronics", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.ExistsByName(ctx, "Electronics", c.ID)
	require.NoError(t, err)
	assert.False(t, taken, "the category itself is excluded")

	taken, err = repo.ExistsBySlug(ctx, "electronics", 0)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestGormCategoryRepository_SaveWithNextOrder(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	electronics := createCategory(t, repo, "Electronics", nil)
	sensors := createCategory(t, repo, "Sensors", &electronics.ID)
	tools := createCategory(t, repo, "Tools", nil)
	assert.Equal(t, 2, tools.SortOrder)

	require.NoError(t, tools.Reparent(&electronics.ID))
	require.NoError(t, repo.SaveWithNextOrder(ctx, tools))
	assert.Equal(t, 2, tools.SortOrder)

	reloaded, err := repo.FindByID(ctx, tools.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ParentID)
	assert.Equal(t, electronics.ID, *reloaded.ParentID)

	orders := siblingOrders(t, repo, &electronics.ID)
	assert.Equal(t, map[uint64]int{sensors.ID: 1, tools.ID: 2}, orders)

	require.NoError(t, tools.Reparent(nil))
	require.NoError(t, repo.SaveWithNextOrder(ctx, tools))
	assert.Equal(t, 2, tools.SortOrder)
	assertUniqueOrders(t, siblingOrders(t, repo, nil))
}

func TestGormCategoryRepository_SaveRejectsTakenOrder(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	createCategory(t, repo, "Electronics", nil)
	tools := createCategory(t, repo, "Tools", nil)

	conflict, err := repo.FindConflict(ctx, nil, 1, tools.ID)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "Electronics", conflict.Name)

	none, err := repo.FindConflict(ctx, nil, 2, tools.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, tools.SetSortOrder(1))
	err = repo.Save(ctx, tools)
	assert.ErrorIs(t, err, catalog.ErrDuplicateOrder)
}

func TestGormCategoryRepository_Save_NotFound(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	c, err := catalog.NewCategory("Ghost", "", nil, "")
	require.NoError(t, err)
	c.ID = 42

	err = repo.Save(context.Background(), c)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestGormCategoryRepository_AdjacentSiblingAndSwap(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	a := createCategory(t, repo, "A", nil)
	b := createCategory(t, repo, "B", nil)
	c := createCategory(t, repo, "C", nil)

	t.Run("edges have no neighbor", func(t *testing.T) {
		up, err := repo.FindAdjacentSibling(ctx, a, catalog.DirectionUp)
		require.NoError(t, err)
		assert.Nil(t, up)

		down, err := repo.FindAdjacentSibling(ctx, c, catalog.DirectionDown)
		require.NoError(t, err)
		assert.Nil(t, down)
	})

	t.Run("swap exchanges orders", func(t *testing.T) {
		neighbor, err := repo.FindAdjacentSibling(ctx, b, catalog.DirectionUp)
		require.NoError(t, err)
		require.NotNil(t, neighbor)
		assert.Equal(t, a.ID, neighbor.ID)

		require.NoError(t, repo.SwapSortOrder(ctx, b, neighbor))
		assert.Equal(t, 1, b.SortOrder)
		assert.Equal(t, 2, neighbor.SortOrder)

		orders := siblingOrders(t, repo, nil)
		assert.Equal(t, map[uint64]int{a.ID: 2, b.ID: 1, c.ID: 3}, orders)
	})

	t.Run("swap back restores the original order", func(t *testing.T) {
		current, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		neighbor, err := repo.FindAdjacentSibling(ctx, current, catalog.DirectionDown)
		require.NoError(t, err)
		require.NotNil(t, neighbor)
		assert.Equal(t, a.ID, neighbor.ID)

		require.NoError(t, repo.SwapSortOrder(ctx, current, neighbor))
		orders := siblingOrders(t, repo, nil)
		assert.Equal(t, map[uint64]int{a.ID: 1, b.ID: 2, c.ID: 3}, orders)
	})

	t.Run("stale order is rejected without changes", func(t *testing.T) {
		stale := *a
		stale.SortOrder = 7
		err := repo.SwapSortOrder(ctx, &stale, b)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		orders := siblingOrders(t, repo, nil)
		assert.Equal(t, map[uint64]int{a.ID: 1, b.ID: 2, c.ID: 3}, orders)
	})
}

func TestGormCategoryRepository_SwapRollsBackOnFailure(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormCategoryRepository(mockDB.DB)

	target := &catalog.Category{SortOrder: 2}
	target.ID = 5
	neighbor := &catalog.Category{SortOrder: 1}
	neighbor.ID = 3

	mockDB.Mock.ExpectBegin()
	mockDB.Mock.ExpectExec(`UPDATE "categories" SET "sort_order"=.*WHERE id = .* AND sort_order = .*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`UPDATE "categories" SET "sort_order"=.*WHERE id = .* AND sort_order = .*`).
		WillReturnError(errors.New("connection reset"))
	mockDB.Mock.ExpectRollback()

	err := repo.SwapSortOrder(context.Background(), target, neighbor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 2, target.SortOrder, "in-memory orders are untouched on failure")
	assert.Equal(t, 1, neighbor.SortOrder)

	mockDB.ExpectationsWereMet(t)
}

func TestGormCategoryRepository_DeletePromotesChildren(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	electronics := createCategory(t, repo, "Electronics", nil)
	tools := createCategory(t, repo, "Tools", nil)
	sensors := createCategory(t, repo, "Sensors", &electronics.ID)
	cables := createCategory(t, repo, "Cables", &electronics.ID)
	thermometers := createCategory(t, repo, "Thermometers", &sensors.ID)

	promoted, err := repo.Delete(ctx, electronics.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{sensors.ID, cables.ID}, promoted)

	_, err = repo.FindByID(ctx, electronics.ID)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)

	roots := siblingOrders(t, repo, nil)
	assert.Equal(t, map[uint64]int{tools.ID: 2, sensors.ID: 3, cables.ID: 4}, roots)
	assertUniqueOrders(t, roots)

	grandchild, err := repo.FindByID(ctx, thermometers.ID)
	require.NoError(t, err)
	require.NotNil(t, grandchild.ParentID)
	assert.Equal(t, sensors.ID, *grandchild.ParentID, "grandchildren stay under their parent")

	_, err = repo.Delete(ctx, electronics.ID)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestGormCategoryRepository_ListEdgesAndChildren(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	electronics := createCategory(t, repo, "Electronics", nil)
	sensors := createCategory(t, repo, "Sensors", &electronics.ID)
	thermometers := createCategory(t, repo, "Thermometers", &sensors.ID)

	edges, err := repo.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 3)

	h := catalog.NewHierarchy(edges)
	assert.ElementsMatch(t, []uint64{electronics.ID, sensors.ID, thermometers.ID}, h.SelfAndDescendants(electronics.ID))

	children, err := repo.FindByParentIDs(ctx, []uint64{electronics.ID, sensors.ID})
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, sensors.ID, children[0].ID)
	assert.Equal(t, thermometers.ID, children[1].ID)

	none, err := repo.FindByParentIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormProductRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	categories := NewGormCategoryRepository(db)
	products := NewGormProductRepository(db)
	ctx := context.Background()

	electronics := createCategory(t, categories, "Electronics", nil)
	sensors := createCategory(t, categories, "Sensors", &electronics.ID)

	for i, spec := range []struct {
		sku      string
		category *uint64
	}{
		{"SKU-1", &electronics.ID},
		{"SKU-2", &sensors.ID},
		{"SKU-3", &sensors.ID},
		{"SKU-4", nil},
	} {
		p, err := catalog.NewProduct("Product", spec.sku, decimal.NewFromInt(int64(10+i)), spec.category)
		require.NoError(t, err)
		require.NoError(t, products.Create(ctx, p))
	}

	t.Run("duplicate sku", func(t *testing.T) {
		p, err := catalog.NewProduct("Other", "sku-1", decimal.NewFromInt(1), nil)
		require.NoError(t, err)
		assert.ErrorIs(t, products.Create(ctx, p), catalog.ErrDuplicateSKU)

		taken, err := products.ExistsBySKU(ctx, "SKU-1")
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("counts by category in one query", func(t *testing.T) {
		counts, err := products.CountByCategories(ctx, []uint64{electronics.ID, sensors.ID, 999})
		require.NoError(t, err)
		assert.Equal(t, map[uint64]int64{electronics.ID: 1, sensors.ID: 2}, counts)
	})

	t.Run("category filters", func(t *testing.T) {
		all, err := products.Count(ctx, catalog.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), all)

		scoped, err := products.FindAll(ctx, catalog.ProductFilter{CategoryIDs: []uint64{electronics.ID, sensors.ID}})
		require.NoError(t, err)
		assert.Len(t, scoped, 3)

		none, err := products.FindAll(ctx, catalog.ProductFilter{CategoryIDs: []uint64{}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("sorted by price ascending", func(t *testing.T) {
		items, err := products.FindAll(ctx, catalog.ProductFilter{OrderBy: "price", OrderDir: "asc"})
		require.NoError(t, err)
		require.Len(t, items, 4)
		assert.Equal(t, "SKU-1", items[0].SKU)
	})

	t.Run("references", func(t *testing.T) {
		used, err := products.ExistsByCategory(ctx, sensors.ID)
		require.NoError(t, err)
		assert.True(t, used)

		other := createCategory(t, categories, "Empty", nil)
		used, err = products.ExistsByCategory(ctx, other.ID)
		require.NoError(t, err)
		assert.False(t, used)
	})
}

func newMeteredMockRepo(t *testing.T) (*GormCategoryRepository, *testutil.MockDB, *testutil.MetricsReader) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	reader := testutil.NewMetricsReader(t)
	metrics, err := telemetry.NewCatalogMetrics(reader.Meter())
	require.NoError(t, err)
	return NewGormCategoryRepository(mockDB.DB, WithCategoryMetrics(metrics)), mockDB, reader
}

// expectInsertLosesOrderRace scripts one attempt whose insert hits the root
// sibling index, followed by the name and slug lookups that classify it
func expectInsertLosesOrderRace(mock sqlmock.Sqlmock, maxOrder int) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sort_order\), 0\) FROM "categories" WHERE parent_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(maxOrder))
	mock.ExpectQuery(`INSERT INTO "categories"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_categories_root_sort"})
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "categories" WHERE name = \$1`).
		WithArgs("Tools").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "categories" WHERE slug = \$1`).
		WithArgs("tools").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
}

func TestGormCategoryRepository_CreateRetriesLostOrderRace(t *testing.T) {
	repo, mockDB, reader := newMeteredMockRepo(t)

	expectInsertLosesOrderRace(mockDB.Mock, 5)
	mockDB.Mock.ExpectBegin()
	mockDB.Mock.ExpectQuery(`SELECT COALESCE\(MAX\(sort_order\), 0\) FROM "categories" WHERE parent_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6))
	mockDB.Mock.ExpectQuery(`INSERT INTO "categories"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mockDB.Mock.ExpectCommit()

	category, err := catalog.NewCategory("Tools", "", nil, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), category))

	assert.Equal(t, uint64(9), category.ID)
	assert.Equal(t, 7, category.SortOrder, "the retry recomputes the next order")
	assert.Equal(t, int64(1), reader.Sum(t, "catalog_sort_order_retries_total"))
	assert.Equal(t, int64(0), reader.Sum(t, "catalog_sort_order_contention_total"))
	mockDB.ExpectationsWereMet(t)
}

func TestGormCategoryRepository_CreateGivesUpAfterRetries(t *testing.T) {
	repo, mockDB, reader := newMeteredMockRepo(t)
	for attempt := 0; attempt < catalog.MaxSortOrderRetries; attempt++ {
		expectInsertLosesOrderRace(mockDB.Mock, 5+attempt)
	}

	category, err := catalog.NewCategory("Tools", "", nil, "")
	require.NoError(t, err)
	err = repo.Create(context.Background(), category)

	require.ErrorIs(t, err, catalog.ErrOrderContention)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SORT_ORDER_CONTENTION", domainErr.Code)
	assert.Equal(t, shared.KindConflict, domainErr.Kind)
	assert.Equal(t, int64(catalog.MaxSortOrderRetries-1), reader.Sum(t, "catalog_sort_order_retries_total"))
	assert.Equal(t, int64(1), reader.Sum(t, "catalog_sort_order_contention_total"))
	mockDB.ExpectationsWereMet(t)
}

func TestGormCategoryRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	createCategory(t, repo, "Electronics", nil)
	createCategory(t, repo, "100% Cotton", nil)
	snake, err := catalog.NewCategory("Snake_Case", "snake-case", nil, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, snake))

	tests := []struct {
		search string
		want   []string
	}{
		{"_", []string{"Snake_Case"}},
		{"%", []string{"100% Cotton"}},
		{"0%", []string{"100% Cotton"}},
		{`\`, nil},
		{"e_c", []string{"Snake_Case"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			items, err := repo.FindAll(ctx, catalog.CategoryFilter{Search: tt.search})
			require.NoError(t, err)
			var names []string
			for _, c := range items {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGormCategoryRepository_SaveRejectsCycles(t *testing.T) {
	repo, _ := newCategoryRepo(t)
	ctx := context.Background()

	a := createCategory(t, repo, "A", nil)
	b := createCategory(t, repo, "B", nil)
	c := createCategory(t, repo, "C", &b.ID)

	t.Run("opposing moves read from the same snapshot", func(t *testing.T) {
		aUnderB, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		bUnderA, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)

		require.NoError(t, aUnderB.Reparent(&b.ID))
		require.NoError(t, repo.SaveWithNextOrder(ctx, aUnderB))

		require.NoError(t, bUnderA.Reparent(&a.ID))
		err = repo.SaveWithNextOrder(ctx, bUnderA)
		assert.ErrorIs(t, err, catalog.ErrCircularReference)

		reloaded, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, reloaded.ParentID)
	})

	t.Run("explicit order cannot move under its own child", func(t *testing.T) {
		root, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, root.Reparent(&c.ID))
		require.NoError(t, root.SetSortOrder(9))

		err = repo.Save(ctx, root)
		assert.ErrorIs(t, err, catalog.ErrCircularReference)
	})

	t.Run("unchanged parent skips the check", func(t *testing.T) {
		child, err := repo.FindByID(ctx, c.ID)
		require.NoError(t, err)
		require.NoError(t, child.Rename("C2"))
		require.NoError(t, repo.Save(ctx, child))
	})
}

func TestGormCategoryRepository_ReparentTakesLineageLock(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormCategoryRepository(mockDB.DB)

	category := &catalog.Category{Name: "Tools", Slug: "tools", Status: catalog.CategoryStatusActive, SortOrder: 2}
	category.ID = 4
	parentID := uint64(1)
	require.NoError(t, category.Reparent(&parentID))

	mock := mockDB.Mock
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT parent_id FROM categories WHERE id = \$1`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"parent_id"}).AddRow(nil))
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(reparentLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WITH RECURSIVE lineage`).
		WithArgs(uint64(1), uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sort_order\), 0\) FROM "categories" WHERE parent_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec(`UPDATE "categories" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveWithNextOrder(context.Background(), category))
	assert.Equal(t, 4, category.SortOrder)
	mockDB.ExpectationsWereMet(t)
}
