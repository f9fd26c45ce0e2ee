package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	GetTrialBalanceLines(ctx context.Context, filter TrialBalanceFilter) ([]TrialBalanceLine, error)
}
