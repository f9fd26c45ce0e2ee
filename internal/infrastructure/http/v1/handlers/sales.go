package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/sales"
	"formdesk/internal/domain/submit"
	"formdesk/internal/infrastructure/http/v1/dto"
	"formdesk/internal/infrastructure/session"
)

// SalesRecords loads persisted sales orders.
type SalesRecords interface {
	GetSalesOrder(ctx context.Context, recordID string) (sales.Record, error)
}

// SalesHandler handles HTTP requests for sales order drafts.
type SalesHandler struct {
	*FormHandler[*sales.Form, sales.Payload, sales.View]
	deps    sales.Deps
	records SalesRecords
}

// NewSalesHandler creates a new sales order handler.
func NewSalesHandler(
	base *BaseHandler,
	drafts *session.Manager[*sales.Form],
	orch *submit.Orchestrator[sales.Payload],
	reference Reference,
	deps sales.Deps,
	records SalesRecords,
) *SalesHandler {
	return &SalesHandler{
		FormHandler: newFormHandler[*sales.Form, sales.Payload, sales.View](
			base, drafts, orch, reference,
			catalog.KindProducts, catalog.KindCustomers, catalog.KindProjects,
		),
		deps:    deps,
		records: records,
	}
}

// Create handles POST /forms/sales-orders
func (h *SalesHandler) Create(c *gin.Context) {
	h.open(c, func(ctx context.Context, recordID, _ string) (*sales.Form, error) {
		if recordID == "" {
			return sales.New(ctx, h.deps), nil
		}
		rec, err := h.records.GetSalesOrder(ctx, recordID)
		if err != nil {
			return nil, err
		}
		return sales.Load(ctx, h.deps, rec)
	})
}

// UpdateHeader handles PATCH /forms/sales-orders/:id/header
func (h *SalesHandler) UpdateHeader(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	var req dto.SalesHeaderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	view, err := f.UpdateHeader(c.Request.Context(), req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// AddItem handles POST /forms/sales-orders/:id/items
func (h *SalesHandler) AddItem(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	var req dto.SalesItemRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	item, err := f.AddItem(c.Request.Context(), req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item)
}

// UpdateItem handles PATCH /forms/sales-orders/:id/items/:key
func (h *SalesHandler) UpdateItem(c *gin.Context) {
	f, key, ok := h.item(c)
	if !ok {
		return
	}
	var req dto.SalesItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := f.UpdateItem(c.Request.Context(), key, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// CreateProduct handles POST /forms/sales-orders/:id/items/:key/product
func (h *SalesHandler) CreateProduct(c *gin.Context) {
	f, key, ok := h.item(c)
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := f.CreateAndSelectProduct(c.Request.Context(), key, req.ToNewProduct())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item)
}

// Totals handles GET /forms/sales-orders/:id/totals
func (h *SalesHandler) Totals(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	h.OK(c, f.View(c.Request.Context()).Totals)
}
