package router

import (
	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// CategoryRoutes builds the /categories group.
// Static segments are registered before /:id so they never parse as ids.
func CategoryRoutes(h *handler.CategoryHandler) *DomainGroup {
	return NewDomainGroup("categories", "/categories").
		POST("", h.Create).
		GET("", h.List).
		GET("/parents", h.ListParents).
		GET("/tree", h.GetTree).
		GET("/:id", h.GetByID).
		GET("/:id/descendants", h.GetDescendants).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete).
		PATCH("/:id/toggle", h.ToggleStatus).
		PATCH("/:id/move", h.Move)
}

// ProductRoutes builds the /products group
func ProductRoutes(h *handler.ProductHandler) *DomainGroup {
	return NewDomainGroup("products", "/products").
		POST("", h.Create).
		GET("", h.List)
}
