package v1

import (
	"github.com/gin-gonic/gin"
)

// FormRouteHandler defines the interface for document form handlers.
// All form handlers must implement these methods.
type FormRouteHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Discard(c *gin.Context)
	UpdateHeader(c *gin.Context)
	AddItem(c *gin.Context)
	UpdateItem(c *gin.Context)
	RemoveItem(c *gin.Context)
	SetPicker(c *gin.Context)
	Totals(c *gin.Context)
	Validate(c *gin.Context)
	Submit(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
}

// ProductCreator is an optional interface for forms that can create a
// product inline and select it on a row.
type ProductCreator interface {
	CreateProduct(c *gin.Context)
}

// RegisterFormRoutes registers the draft and workflow routes of a form.
// If the handler also implements ProductCreator, the inline product route
// is registered as well, behind productMiddleware.
//
// Usage:
//
//	h := handlers.NewSalesHandler(base, drafts, orch, catalog, deps, records)
//	RegisterFormRoutes(forms.Group("/sales-orders"), h, middleware.FreshCredential(refresher))
func RegisterFormRoutes(group *gin.RouterGroup, handler FormRouteHandler, productMiddleware ...gin.HandlerFunc) {
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.DELETE("/:id", handler.Discard)
	group.PATCH("/:id/header", handler.UpdateHeader)
	group.GET("/:id/totals", handler.Totals)
	group.POST("/:id/validate", handler.Validate)
	group.POST("/:id/submit", handler.Submit)
	group.POST("/:id/confirm", handler.Confirm)
	group.POST("/:id/cancel", handler.Cancel)

	items := group.Group("/:id/items")
	items.POST("", handler.AddItem)
	items.PATCH("/:key", handler.UpdateItem)
	items.DELETE("/:key", handler.RemoveItem)
	items.PUT("/:key/picker", handler.SetPicker)

	if creator, ok := handler.(ProductCreator); ok {
		chain := append(append([]gin.HandlerFunc{}, productMiddleware...), creator.CreateProduct)
		items.POST("/:key/product", chain...)
	}
}
