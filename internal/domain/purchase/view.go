package purchase

import (
	"context"
	"time"

	"formdesk/internal/core/id"
	"formdesk/internal/core/notice"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
)

// ItemView is a row with its derived fields.
type ItemView struct {
	LineItem
	LineTotal   types.Money    `json:"lineTotal"`
	StockStatus StockStatus    `json:"stockStatus"`
	Shortfall   types.Quantity `json:"shortfall"`
	FIFOHint    string         `json:"fifoHint,omitempty"`
	UI          forms.RowUI    `json:"ui"`
}

// View is a read-only snapshot of a PR draft.
type View struct {
	ID           id.ID                   `json:"id"`
	Kind         forms.Kind              `json:"kind"`
	RecordID     string                  `json:"recordId,omitempty"`
	Number       string                  `json:"number,omitempty"`
	State        forms.State             `json:"state"`
	Header       Header                  `json:"header"`
	Items        []ItemView              `json:"items"`
	Totals       Totals                  `json:"totals"`
	ParentBudget *catalog.BudgetSnapshot `json:"parentBudget,omitempty"`
	Budget       forms.BudgetCheck       `json:"budget"`
	Errors       map[string]string       `json:"errors,omitempty"`
	Notices      []notice.Notice         `json:"notices"`
	Receipt      *forms.Receipt          `json:"receipt,omitempty"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// view builds the snapshot. Callers hold the lock.
func (f *Form) view(_ context.Context) View {
	items := f.rows.Items()
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		status, shortfall := it.Sufficiency()
		iv := ItemView{
			LineItem:    it,
			LineTotal:   it.LineTotal(),
			StockStatus: status,
			Shortfall:   shortfall,
			UI:          f.rows.UI(it.TempKey),
		}
		if it.SourceCategory.FIFOPriced() {
			iv.FIFOHint = FIFOHint
		}
		out = append(out, iv)
	}

	totals := ComputeTotals(items)
	v := View{
		ID:        f.draft.ID,
		Kind:      f.draft.Kind,
		RecordID:  f.recordID,
		Number:    f.number,
		State:     f.draft.Workflow().State(),
		Header:    f.header,
		Items:     out,
		Totals:    totals,
		Budget:    Guard(f.header, f.parent, totals),
		Notices:   f.draft.Notices(),
		Receipt:   f.draft.Receipt(),
		UpdatedAt: f.draft.UpdatedAt,
	}
	if f.parent != nil {
		snap := *f.parent
		v.ParentBudget = &snap
	}
	if errs := f.draft.Errors(); !errs.Empty() {
		v.Errors = errs.Map()
	}
	return v
}
