package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/notice"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/infrastructure/http/v1/dto"
)

// Catalog is the reference data registry.
type Catalog interface {
	Reference
	Load(ctx context.Context, kind catalog.Kind) (any, *notice.Notice)
	CreateProduct(ctx context.Context, input catalog.NewProduct) (catalog.Product, error)
}

// ReferenceHandler serves reference lists and inline product creation.
type ReferenceHandler struct {
	*BaseHandler
	catalog Catalog
}

// NewReferenceHandler creates a new reference handler.
func NewReferenceHandler(base *BaseHandler, c Catalog) *ReferenceHandler {
	return &ReferenceHandler{BaseHandler: base, catalog: c}
}

// List handles GET /reference/:kind
// A failed backend fetch still answers 200 with the last good snapshot and
// a warning notice.
func (h *ReferenceHandler) List(c *gin.Context) {
	kind, ok := catalog.ParseKind(c.Param("kind"))
	if !ok {
		h.Error(c, apperror.NewNotFound("reference data", c.Param("kind")))
		return
	}
	items, n := h.catalog.Load(c.Request.Context(), kind)
	var notices []notice.Notice
	if n != nil {
		notices = append(notices, *n)
	}
	h.OK(c, listResponse(items, notices))
}

func listResponse(items any, notices []notice.Notice) dto.ListResponse {
	switch v := items.(type) {
	case []catalog.Product:
		return dto.NewListResponse(v, notices...)
	case []catalog.Customer:
		return dto.NewListResponse(v, notices...)
	case []catalog.Project:
		return dto.NewListResponse(v, notices...)
	case []catalog.Employee:
		return dto.NewListResponse(v, notices...)
	case []catalog.Warehouse:
		return dto.NewListResponse(v, notices...)
	case []catalog.WorkOrder:
		return dto.NewListResponse(v, notices...)
	case []catalog.ParentRequest:
		return dto.NewListResponse(v, notices...)
	default:
		return dto.NewListResponse([]any{}, notices...)
	}
}

// CreateProduct handles POST /reference/products
func (h *ReferenceHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), req.ToNewProduct())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// CurrentEmployee handles GET /reference/me
func (h *ReferenceHandler) CurrentEmployee(c *gin.Context) {
	var resp dto.CurrentEmployeeResponse
	if user := appctx.GetUser(c.Request.Context()); user != nil {
		emp, n := h.catalog.CurrentEmployee(c.Request.Context(), user.Email)
		if emp.ID != "" {
			resp.Employee = &emp
		}
		if n != nil {
			resp.Notices = append(resp.Notices, *n)
		}
	}
	h.OK(c, resp)
}
