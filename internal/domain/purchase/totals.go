package purchase

import (
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
)

// Totals are the aggregate amounts of a PR.
type Totals struct {
	CostCategoryTotal types.Money `json:"costCategoryTotal"`
	InternalUseTotal  types.Money `json:"internalUseTotal"`
	GrandTotal        types.Money `json:"grandTotal"`
}

// ComputeTotals sums line totals per category bucket. Rows with an unset or
// unknown category count toward neither bucket.
func ComputeTotals(items []LineItem) Totals {
	cost, internal := types.Zero(), types.Zero()
	for _, it := range items {
		switch {
		case it.SourceCategory.CostBearing():
			cost = cost.Add(it.LineTotal())
		case it.SourceCategory.InternalUse():
			internal = internal.Add(it.LineTotal())
		}
	}
	return Totals{
		CostCategoryTotal: cost,
		InternalUseTotal:  internal,
		GrandTotal:        cost.Add(internal),
	}
}

// Guard compares the cost-bearing total against the parent's remaining
// budget. It applies only to work-order-linked requests with a parent; a
// missing snapshot yields an unavailable check rather than a pass.
func Guard(h Header, parent *catalog.BudgetSnapshot, totals Totals) forms.BudgetCheck {
	if !h.Linked() || h.ParentRequestID == "" {
		return forms.BudgetCheck{}
	}
	cost := totals.CostCategoryTotal
	if parent == nil {
		return forms.BudgetCheck{Applies: true, Unavailable: true, CostTotal: cost}
	}
	deficit := cost.Sub(parent.RemainingBudget)
	return forms.BudgetCheck{
		Applies:   true,
		Exceeded:  deficit.IsPositive(),
		Remaining: parent.RemainingBudget,
		CostTotal: cost,
		Deficit:   types.Max(types.Zero(), deficit),
		Projected: parent.RemainingBudget.Sub(cost),
	}
}
