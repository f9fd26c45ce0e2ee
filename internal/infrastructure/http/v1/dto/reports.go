package dto

import (
	"time"

	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/reports"
)

// TrialBalanceRequest is the trial balance query. Both dates or neither.
type TrialBalanceRequest struct {
	StartDate string `form:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" binding:"omitempty,datetime=2006-01-02"`
}

// ToFilter converts to the report filter.
func (r TrialBalanceRequest) ToFilter() reports.TrialBalanceFilter {
	var f reports.TrialBalanceFilter
	f.StartDate = date(r.StartDate)
	f.EndDate = date(r.EndDate)
	return f
}

func date(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := forms.ParseDate(s)
	return t
}
