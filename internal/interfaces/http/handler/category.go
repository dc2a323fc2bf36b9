package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Create godoc
// @Summary      Create a category
// @Description  Create a root category, or a child when parent_id is given. The category is appended to its sibling group.
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateCategoryRequest true "Category creation request"
// @Success      201 {object} catalogapp.CategoryResponse
// @Failure      400 {object} dto.ErrorResponse
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req catalogapp.CreateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, category)
}

// GetByID godoc
// @Summary      Get category by ID
// @Description  Retrieve a category with its direct children and product counts
// @Tags         categories
// @Produce      json
// @Param        id path int true "Category ID"
// @Success      200 {object} catalogapp.CategoryNode
// @Failure      404 {object} dto.ErrorResponse
// @Router       /categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	node, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, node)
}

// List godoc
// @Summary      List categories
// @Description  List one sibling group, the roots unless parent_id is given
// @Tags         categories
// @Produce      json
// @Param        parent_id query string false "Parent category ID, empty or null for roots"
// @Param        status query string false "Status filter" Enums(active, inactive)
// @Param        search query string false "Case-insensitive name or slug search"
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} dto.ListResponse[catalogapp.CategoryNode]
// @Failure      400 {object} dto.ErrorResponse
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	var filter catalogapp.CategoryListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.categoryService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	List(c, page)
}

// ListParents godoc
// @Summary      List root categories
// @Tags         categories
// @Produce      json
// @Success      200 {object} dto.ListResponse[catalogapp.CategoryNode]
// @Router       /categories/parents [get]
func (h *CategoryHandler) ListParents(c *gin.Context) {
	var filter catalogapp.CategoryListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.categoryService.ListParents(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	List(c, page)
}

// GetTree godoc
// @Summary      Get the category tree
// @Description  Every root with its subtree. depth limits the levels returned; 0 or absent returns the whole tree.
// @Tags         categories
// @Produce      json
// @Param        depth query int false "Levels to return, including the roots"
// @Success      200 {array} catalogapp.CategoryNode
// @Failure      400 {object} dto.ErrorResponse
// @Router       /categories/tree [get]
func (h *CategoryHandler) GetTree(c *gin.Context) {
	depth := 0
	if raw := c.Query("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			h.BadRequest(c, dto.ErrCodeBadRequest, "depth must be a non-negative integer")
			return
		}
		depth = d
	}

	tree, err := h.categoryService.Tree(c.Request.Context(), depth)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tree)
}

// GetDescendants godoc
// @Summary      Get a category and every category below it
// @Tags         categories
// @Produce      json
// @Param        id path int true "Category ID"
// @Success      200 {object} catalogapp.DescendantsResponse
// @Failure      404 {object} dto.ErrorResponse
// @Router       /categories/{id}/descendants [get]
func (h *CategoryHandler) GetDescendants(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	ids, err := h.categoryService.SelfAndDescendantIDs(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, catalogapp.DescendantsResponse{ID: id, IDs: ids})
}

// Update godoc
// @Summary      Update a category
// @Description  Partial update. Changing parent_id without sort_order appends the category to its new group.
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path int true "Category ID"
// @Param        request body catalogapp.UpdateCategoryRequest true "Fields to change"
// @Success      200 {object} catalogapp.CategoryResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Router       /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req catalogapp.UpdateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, category)
}

// Delete godoc
// @Summary      Delete a category
// @Description  Children are promoted to roots. Fails while products reference the category.
// @Tags         categories
// @Produce      json
// @Param        id path int true "Category ID"
// @Success      200 {object} dto.MessageResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Router       /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Category deleted successfully"})
}

// ToggleStatus godoc
// @Summary      Toggle a category between active and inactive
// @Tags         categories
// @Produce      json
// @Param        id path int true "Category ID"
// @Success      200 {object} catalogapp.ToggleStatusResponse
// @Failure      404 {object} dto.ErrorResponse
// @Router       /categories/{id}/toggle [patch]
func (h *CategoryHandler) ToggleStatus(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	result, err := h.categoryService.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Move godoc
// @Summary      Move a category up or down among its siblings
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path int true "Category ID"
// @Param        request body catalogapp.MoveCategoryRequest true "Direction"
// @Success      200 {object} dto.DataResponse[[]catalogapp.CategoryResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /categories/{id}/move [patch]
func (h *CategoryHandler) Move(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req catalogapp.MoveCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.categoryService.Move(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.DataResponse[[]catalogapp.CategoryResponse]{
		Message: result.Message,
		Data:    result.Pair,
	})
}
