package reports

import (
	"context"
	"fmt"
	"time"

	"formdesk/internal/core/apperror"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/forms"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// GetTrialBalance builds the trial balance of a period. A zero period
// defaults to the current month to date.
func (s *Service) GetTrialBalance(ctx context.Context, filter TrialBalanceFilter) (*TrialBalance, error) {
	if filter.StartDate.IsZero() && filter.EndDate.IsZero() {
		now := s.now().UTC()
		filter.StartDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		filter.EndDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if filter.StartDate.IsZero() || filter.EndDate.IsZero() {
		return nil, apperror.NewValidation("startDate and endDate are required")
	}
	if filter.StartDate.After(filter.EndDate) {
		return nil, apperror.NewValidation("startDate must not be after endDate").
			WithDetail("field", "startDate")
	}

	lines, err := s.repo.GetTrialBalanceLines(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get trial balance: %w", err)
	}
	return Summarize(filter, lines), nil
}

// Summarize totals lines. The report is balanced when total debit equals
// total credit.
func Summarize(filter TrialBalanceFilter, lines []TrialBalanceLine) *TrialBalance {
	tb := &TrialBalance{
		StartDate:   forms.FormatDate(filter.StartDate),
		EndDate:     forms.FormatDate(filter.EndDate),
		Lines:       make([]TrialBalanceRow, 0, len(lines)),
		TotalDebit:  types.Zero(),
		TotalCredit: types.Zero(),
	}
	for _, l := range lines {
		tb.Lines = append(tb.Lines, TrialBalanceRow{TrialBalanceLine: l, Balance: l.Balance()})
		tb.TotalDebit = tb.TotalDebit.Add(l.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(l.Credit)
	}
	tb.Difference = tb.TotalDebit.Sub(tb.TotalCredit)
	tb.Balanced = tb.Difference.IsZero()
	return tb
}
