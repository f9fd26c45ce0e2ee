package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"formdesk/internal/domain/reports"
	"formdesk/internal/infrastructure/http/v1/dto"
)

// TrialBalanceService builds trial balances.
type TrialBalanceService interface {
	GetTrialBalance(ctx context.Context, filter reports.TrialBalanceFilter) (*reports.TrialBalance, error)
}

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service TrialBalanceService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service TrialBalanceService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetTrialBalance handles GET /reports/trial-balance
func (h *ReportsHandler) GetTrialBalance(c *gin.Context) {
	var req dto.TrialBalanceRequest
	if !h.BindQuery(c, &req) {
		return
	}
	report, err := h.service.GetTrialBalance(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
