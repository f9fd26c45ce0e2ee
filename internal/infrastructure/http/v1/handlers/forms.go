package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
	"formdesk/internal/core/notice"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/submit"
	"formdesk/internal/infrastructure/http/v1/dto"
	"formdesk/internal/infrastructure/session"
	"formdesk/pkg/logger"
)

// draftForm is the surface shared by every document form.
type draftForm[P, V any] interface {
	submit.Document[P]
	ID() id.ID
	Close()
	View(ctx context.Context) V
	RemoveItem(ctx context.Context, key id.ID) error
	SetPicker(key id.ID, state forms.RowUI) error
	CheckValidity(ctx context.Context) forms.Errors
}

// Reference is the reference data the form handlers read.
type Reference interface {
	Warm(ctx context.Context, kinds ...catalog.Kind) []notice.Notice
	CurrentEmployee(ctx context.Context, email string) (catalog.Employee, *notice.Notice)
}

// OutcomeResponse is the result of a workflow step with the form after it.
type OutcomeResponse[V any] struct {
	Outcome submit.Outcome `json:"outcome"`
	Form    V              `json:"form"`
}

// FormHandler serves the endpoints every document form shares: open, read,
// row removal, picker state, validation and the submission workflow.
type FormHandler[F draftForm[P, V], P, V any] struct {
	*BaseHandler
	drafts    *session.Manager[F]
	orch      *submit.Orchestrator[P]
	reference Reference
	warm      []catalog.Kind
}

func newFormHandler[F draftForm[P, V], P, V any](
	base *BaseHandler,
	drafts *session.Manager[F],
	orch *submit.Orchestrator[P],
	reference Reference,
	warm ...catalog.Kind,
) *FormHandler[F, P, V] {
	return &FormHandler[F, P, V]{
		BaseHandler: base,
		drafts:      drafts,
		orch:        orch,
		reference:   reference,
		warm:        warm,
	}
}

// open creates a draft through build and registers it for the caller.
// build receives the persisted record ID (empty for a new document) and the
// employee ID of the signed-in user.
func (h *FormHandler[F, P, V]) open(c *gin.Context, build func(ctx context.Context, recordID, employeeID string) (F, error)) {
	var req dto.OpenFormRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	var notices []notice.Notice
	var employeeID string
	if h.reference != nil {
		notices = h.reference.Warm(ctx, h.warm...)
		if user := appctx.GetUser(ctx); user != nil {
			emp, n := h.reference.CurrentEmployee(ctx, user.Email)
			employeeID = emp.ID
			if n != nil {
				notices = append(notices, *n)
			}
		}
	}

	f, err := build(ctx, req.RecordID, employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	for _, n := range notices {
		f.Draft().Notify(n)
	}
	if err := h.drafts.Put(h.Owner(c), f); err != nil {
		f.Close()
		h.Error(c, err)
		return
	}
	logger.Debug(ctx, "draft opened", "draft_id", f.ID(), "kind", f.Draft().Kind, "record_id", req.RecordID)
	h.Created(c, f.View(ctx))
}

// draft resolves the :id path parameter to a draft of the caller.
func (h *FormHandler[F, P, V]) draft(c *gin.Context) (F, bool) {
	var zero F
	draftID, ok := h.ParseID(c, "id")
	if !ok {
		return zero, false
	}
	f, err := h.drafts.Get(h.Owner(c), draftID)
	if err != nil {
		h.Error(c, err)
		return zero, false
	}
	return f, true
}

// item resolves the :id and :key path parameters.
func (h *FormHandler[F, P, V]) item(c *gin.Context) (F, id.ID, bool) {
	f, ok := h.draft(c)
	if !ok {
		return f, id.Nil, false
	}
	key, ok := h.ParseID(c, "key")
	if !ok {
		return f, id.Nil, false
	}
	return f, key, true
}

// Get handles GET /forms/{kind}/:id
func (h *FormHandler[F, P, V]) Get(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	h.OK(c, f.View(c.Request.Context()))
}

// RemoveItem handles DELETE /forms/{kind}/:id/items/:key
func (h *FormHandler[F, P, V]) RemoveItem(c *gin.Context) {
	f, key, ok := h.item(c)
	if !ok {
		return
	}
	if err := f.RemoveItem(c.Request.Context(), key); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, f.View(c.Request.Context()))
}

// SetPicker handles PUT /forms/{kind}/:id/items/:key/picker
func (h *FormHandler[F, P, V]) SetPicker(c *gin.Context) {
	f, key, ok := h.item(c)
	if !ok {
		return
	}
	var req dto.PickerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := f.SetPicker(key, req.ToRowUI()); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Validate handles POST /forms/{kind}/:id/validate
// The form state is left unchanged.
func (h *FormHandler[F, P, V]) Validate(c *gin.Context) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	errs := f.CheckValidity(c.Request.Context())
	h.OK(c, dto.NewFormErrorsResponse(errs, h.summaryLimit))
}

// Submit handles POST /forms/{kind}/:id/submit
func (h *FormHandler[F, P, V]) Submit(c *gin.Context) {
	h.step(c, h.orch.RequestSubmit)
}

// Confirm handles POST /forms/{kind}/:id/confirm
func (h *FormHandler[F, P, V]) Confirm(c *gin.Context) {
	h.step(c, h.orch.Confirm)
}

// Cancel handles POST /forms/{kind}/:id/cancel
func (h *FormHandler[F, P, V]) Cancel(c *gin.Context) {
	h.step(c, h.orch.Cancel)
}

func (h *FormHandler[F, P, V]) step(c *gin.Context, run func(context.Context, submit.Document[P]) (submit.Outcome, error)) {
	f, ok := h.draft(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	out, err := run(ctx, f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, OutcomeResponse[V]{Outcome: out, Form: f.View(ctx)})
}

// Discard handles DELETE /forms/{kind}/:id
// Pending lookups of the draft are cancelled.
func (h *FormHandler[F, P, V]) Discard(c *gin.Context) {
	draftID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.drafts.Discard(h.Owner(c), draftID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
