package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/purchase"
	"formdesk/internal/domain/submit"
	"formdesk/internal/infrastructure/http/v1/dto"
	"formdesk/internal/infrastructure/session"
)

// PurchaseRecords loads persisted purchase requests.
type PurchaseRecords interface {
	GetPurchaseRequest(ctx context.Context, recordID string) (purchase.Record, error)
}

// PurchaseHandler handles HTTP requests for purchase request drafts.
type PurchaseHandler struct {
	*FormHandler[*purchase.Form, purchase.Payload, purchase.View]
	deps    purchase.Deps
	records PurchaseRecords
}

// NewPurchaseHandler creates a new purchase request handler.
func NewPurchaseHandler(
	base *BaseHandler,
	drafts *session.Manager[*purchase.Form],
	orch *submit.Orchestrator[purchase.Payload],
	reference Reference,
	deps purchase.Deps,
	records PurchaseRecords,
) *PurchaseHandler {
	return &PurchaseHandler{
		FormHandler: newFormHandler[*purchase.Form, purchase.Payload, purchase.View](
			base, drafts, orch, reference,
			catalog.KindProducts, catalog.KindEmployees, catalog.KindProjects,
			catalog.KindWarehouses, catalog.KindWorkOrders, catalog.KindParentRequests,
		),
		deps:    deps,
		records: records,
	}
}

// Create handles POST /forms/purchase-requests
func (h *PurchaseHandler) Create(c *gin.Context) {
	h.open(c, func(ctx context.Context, recordID, employeeID string) (*purchase.Form, error) {
		if recordID == "" {
			return purchase.New(ctx, h.deps, employeeID), nil
		}
		rec, err := h.records.GetPurchaseRequest(ctx, recordID)
		if err != nil {
			return nil, err
		}
		return purchase.Load(ctx, h.deps, rec, employeeID)
	})
}

// UpdateHeader handles PATCH /forms/purchase-requests/:id/header
func (h *PurchaseHandler) UpdateHeader(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	var req dto.PurchaseHeaderRequest
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

// AddItem handles POST /forms/purchase-requests/:id/items
func (h *PurchaseHandler) AddItem(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	var req dto.PurchaseItemRequest
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

// UpdateItem handles PATCH /forms/purchase-requests/:id/items/:key
func (h *PurchaseHandler) UpdateItem(c *gin.Context) {
	f, key, ok := h.item(c)
	if !ok {
		return
	}
	var req dto.PurchaseItemRequest
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

// CreateProduct handles POST /forms/purchase-requests/:id/items/:key/product
func (h *PurchaseHandler) CreateProduct(c *gin.Context) {
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

// Totals handles GET /forms/purchase-requests/:id/totals
func (h *PurchaseHandler) Totals(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	h.OK(c, f.Totals())
}
