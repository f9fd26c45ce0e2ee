// Package reports provides read-only accounting views.
package reports

import (
	"time"

	"formdesk/internal/core/types"
)

// --- Trial Balance ---

// TrialBalanceFilter defines the reporting period.
type TrialBalanceFilter struct {
	// StartDate and EndDate are inclusive calendar days.
	StartDate time.Time
	EndDate   time.Time
}

// TrialBalanceLine is the period movement of one account.
type TrialBalanceLine struct {
	AccountID   string      `json:"accountId"`
	AccountCode string      `json:"accountCode"`
	AccountName string      `json:"accountName"`
	AccountType string      `json:"accountType,omitempty"`
	Debit       types.Money `json:"debit"`
	Credit      types.Money `json:"credit"`
}

// Balance is debit − credit.
func (l TrialBalanceLine) Balance() types.Money {
	return l.Debit.Sub(l.Credit)
}

// TrialBalanceRow is a line with its computed balance.
type TrialBalanceRow struct {
	TrialBalanceLine
	Balance types.Money `json:"balance"`
}

// TrialBalance represents the full trial balance report.
type TrialBalance struct {
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
	Lines     []TrialBalanceRow `json:"lines"`

	// Summary
	TotalDebit  types.Money `json:"totalDebit"`
	TotalCredit types.Money `json:"totalCredit"`
	Difference  types.Money `json:"difference"`
	Balanced    bool        `json:"balanced"`
}
