package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/opname"
	"formdesk/internal/domain/submit"
	"formdesk/internal/infrastructure/http/v1/dto"
	"formdesk/internal/infrastructure/session"
)

// OpnameRecords loads persisted stock opnames.
type OpnameRecords interface {
	GetStockOpname(ctx context.Context, recordID string) (opname.Record, error)
}

// OpnameHandler handles HTTP requests for stock opname drafts.
type OpnameHandler struct {
	*FormHandler[*opname.Form, opname.Payload, opname.View]
	deps    opname.Deps
	records OpnameRecords
}

// NewOpnameHandler creates a new stock opname handler.
func NewOpnameHandler(
	base *BaseHandler,
	drafts *session.Manager[*opname.Form],
	orch *submit.Orchestrator[opname.Payload],
	reference Reference,
	deps opname.Deps,
	records OpnameRecords,
) *OpnameHandler {
	return &OpnameHandler{
		FormHandler: newFormHandler[*opname.Form, opname.Payload, opname.View](
			base, drafts, orch, reference,
			catalog.KindProducts, catalog.KindEmployees, catalog.KindWarehouses,
		),
		deps:    deps,
		records: records,
	}
}

// Create handles POST /forms/stock-opnames
func (h *OpnameHandler) Create(c *gin.Context) {
	h.open(c, func(ctx context.Context, recordID, employeeID string) (*opname.Form, error) {
		if recordID == "" {
			return opname.New(ctx, h.deps, employeeID), nil
		}
		rec, err := h.records.GetStockOpname(ctx, recordID)
		if err != nil {
			return nil, err
		}
		return opname.Load(ctx, h.deps, rec, employeeID)
	})
}

// UpdateHeader handles PATCH /forms/stock-opnames/:id/header
func (h *OpnameHandler) UpdateHeader(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	var req dto.OpnameHeaderRequest
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

// AddItem handles POST /forms/stock-opnames/:id/items
func (h *OpnameHandler) AddItem(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	var req dto.OpnameItemRequest
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

// UpdateItem handles PATCH /forms/stock-opnames/:id/items/:key
func (h *OpnameHandler) UpdateItem(c *gin.Context) {
	f, key, ok := h.item(c)
	if !ok {
		return
	}
	var req dto.OpnameItemRequest
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

// Totals handles GET /forms/stock-opnames/:id/totals
func (h *OpnameHandler) Totals(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	h.OK(c, f.View(c.Request.Context()).Totals)
}
