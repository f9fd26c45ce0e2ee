package opname

import (
	"context"
	"strings"
	"time"

	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
	"formdesk/internal/core/notice"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
	"formdesk/pkg/logger"
)

// Catalog is the reference data the form reads.
type Catalog interface {
	Product(productID string) (catalog.Product, bool)
}

// Backend persists stock opnames.
type Backend interface {
	CreateStockOpname(ctx context.Context, p Payload) (forms.Receipt, error)
	UpdateStockOpname(ctx context.Context, recordID string, p Payload) (forms.Receipt, error)
}

// Deps are the collaborators of a form.
type Deps struct {
	Catalog      Catalog
	Stock        catalog.StockSource
	Backend      Backend
	StockTimeout time.Duration
}

// Form is one opname draft.
type Form struct {
	draft    *forms.Draft
	deps     Deps
	header   Header
	rows     *forms.Rows[LineItem]
	employee string
	recordID string
	number   string
}

// ItemView is a counted row with its derived values.
type ItemView struct {
	LineItem
	Variance        *types.Quantity `json:"variance"`
	VariancePercent *types.Percent  `json:"variancePercent"`
	LineValue       types.Money     `json:"lineValue"`
	UI              forms.RowUI     `json:"ui"`
}

// View is a read-only snapshot of an opname draft.
type View struct {
	ID        id.ID             `json:"id"`
	Kind      forms.Kind        `json:"kind"`
	RecordID  string            `json:"recordId,omitempty"`
	Number    string            `json:"number,omitempty"`
	State     forms.State       `json:"state"`
	Header    Header            `json:"header"`
	Items     []ItemView        `json:"items"`
	Totals    Totals            `json:"totals"`
	Errors    map[string]string `json:"errors,omitempty"`
	Notices   []notice.Notice   `json:"notices"`
	Receipt   *forms.Receipt    `json:"receipt,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// New creates an empty opname draft. employeeID is the resolved employee of
// the signed-in user and may be empty.
func New(ctx context.Context, deps Deps, employeeID string) *Form {
	now := time.Now().UTC()
	return &Form{
		draft:    forms.NewDraft(ctx, forms.KindStockOpname),
		deps:     deps,
		header:   Header{Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)},
		rows:     forms.NewRows[LineItem](),
		employee: employeeID,
	}
}

// Load opens a persisted opname for editing. The recorded system stock is
// kept as the baseline; no lookups are issued.
func Load(ctx context.Context, deps Deps, rec Record, employeeID string) (*Form, error) {
	f := New(ctx, deps, employeeID)
	h, items := FromRecord(rec)
	f.header = h
	f.recordID = rec.ID
	f.number = rec.Number
	for _, it := range items {
		if err := f.rows.Add(it); err != nil {
			f.draft.Close()
			return nil, err
		}
	}
	return f, nil
}

// Draft returns the shared draft state.
func (f *Form) Draft() *forms.Draft { return f.draft }

// ID returns the draft id.
func (f *Form) ID() id.ID { return f.draft.ID }

// Close discards the draft and cancels its pending lookups.
func (f *Form) Close() { f.draft.Close() }

// UpdateHeader applies header edits. A warehouse change re-fetches the
// system stock of every row.
func (f *Form) UpdateHeader(ctx context.Context, p HeaderPatch) (View, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("edit header"); err != nil {
		return View{}, err
	}
	if p.Date != nil {
		f.header.Date = *p.Date
	}
	if p.CounterID != nil {
		f.header.CounterID = strings.TrimSpace(*p.CounterID)
	}
	if p.Remarks != nil {
		f.header.Remarks = *p.Remarks
	}
	if p.WarehouseID != nil && strings.TrimSpace(*p.WarehouseID) != f.header.WarehouseID {
		f.header.WarehouseID = strings.TrimSpace(*p.WarehouseID)
		for _, row := range f.rows.Items() {
			if row.ProductID != "" {
				f.requestStock(ctx, &row)
				_ = f.rows.Set(row)
			}
		}
	}
	f.draft.Touch()
	return f.view(), nil
}

// AddItem appends a row and applies p to it.
func (f *Form) AddItem(ctx context.Context, p ItemPatch) (LineItem, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("add item"); err != nil {
		return LineItem{}, err
	}
	row := NewLineItem()
	f.apply(ctx, &row, p)
	if err := f.rows.Add(row); err != nil {
		return LineItem{}, err
	}
	f.draft.Touch()
	return row, nil
}

// UpdateItem applies p to the row with key.
func (f *Form) UpdateItem(ctx context.Context, key id.ID, p ItemPatch) (LineItem, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("edit item"); err != nil {
		return LineItem{}, err
	}
	row, err := f.rows.Update(key, func(row LineItem) (LineItem, error) {
		f.apply(ctx, &row, p)
		return row, nil
	})
	if err != nil {
		return LineItem{}, err
	}
	f.draft.Touch()
	return row, nil
}

// RemoveItem deletes the row and drops any pending lookup for it.
func (f *Form) RemoveItem(_ context.Context, key id.ID) error {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("remove item"); err != nil {
		return err
	}
	if err := f.rows.Remove(key); err != nil {
		return err
	}
	f.draft.Enrichment().Forget(key)
	f.draft.Touch()
	return nil
}

// SetPicker stores the product picker state of a row.
func (f *Form) SetPicker(key id.ID, state forms.RowUI) error {
	f.draft.Lock()
	defer f.draft.Unlock()
	return f.rows.SetUI(key, state)
}

// View returns a consistent snapshot.
func (f *Form) View(_ context.Context) View {
	f.draft.Lock()
	defer f.draft.Unlock()
	return f.view()
}

// CheckValidity runs validation without changing workflow state.
func (f *Form) CheckValidity(ctx context.Context) forms.Errors {
	f.draft.Lock()
	defer f.draft.Unlock()
	errs := f.Validate(ctx)
	f.draft.SetErrors(errs)
	return errs
}

// Validate implements submit.Document. Callers hold the lock.
func (f *Form) Validate(ctx context.Context) forms.Errors {
	_, resolvable := forms.ResolveRequester(f.counterChain(ctx)...)
	return Validate(f.header, f.rows.Items(), resolvable)
}

// CheckBudget implements submit.Document; counts carry no budget.
func (f *Form) CheckBudget(context.Context) forms.BudgetCheck { return forms.BudgetCheck{} }

// Identity implements submit.Document. Callers hold the lock.
func (f *Form) Identity(ctx context.Context) ([]string, bool) {
	return f.counterChain(ctx), true
}

// Payload implements submit.Document. Callers hold the lock.
func (f *Form) Payload(counterID string) Payload {
	return BuildPayload(f.header, f.rows.Items(), counterID)
}

// Send implements submit.Document.
func (f *Form) Send(ctx context.Context, p Payload) (forms.Receipt, error) {
	if f.recordID != "" {
		return f.deps.Backend.UpdateStockOpname(ctx, f.recordID, p)
	}
	return f.deps.Backend.CreateStockOpname(ctx, p)
}

func (f *Form) counterChain(ctx context.Context) []string {
	return []string{f.header.CounterID, f.employee, appctx.GetUserID(ctx)}
}

func (f *Form) apply(ctx context.Context, row *LineItem, p ItemPatch) {
	if p.ProductID != nil {
		f.selectProduct(ctx, row, strings.TrimSpace(*p.ProductID))
	}
	if p.ClearPhysical {
		row.PhysicalStock = nil
	}
	if p.PhysicalStock != nil {
		v := *p.PhysicalStock
		row.PhysicalStock = &v
	}
	if p.UnitCost != nil {
		row.UnitCost = *p.UnitCost
	}
	if p.Note != nil {
		row.Note = *p.Note
	}
}

func (f *Form) selectProduct(ctx context.Context, row *LineItem, productID string) {
	if productID == row.ProductID {
		// reselecting retries a system stock lookup that failed
		if productID != "" && row.SystemStock == nil && !row.StockLoading {
			f.requestStock(ctx, row)
		}
		return
	}
	row.ProductID = productID
	row.ProductName = ""
	row.Unit = ""
	row.SystemStock = nil
	row.StockLoading = false
	if productID == "" {
		f.draft.Enrichment().Invalidate(row.TempKey)
		return
	}
	if f.deps.Catalog != nil {
		if product, ok := f.deps.Catalog.Product(productID); ok {
			row.ProductName = product.Name
			row.Unit = product.StorageUnit
			row.UnitCost = product.Price
		}
	}
	f.requestStock(ctx, row)
}

// requestStock issues a system stock lookup for row. Callers hold the lock.
func (f *Form) requestStock(ctx context.Context, row *LineItem) {
	row.SystemStock = nil
	row.StockLoading = false
	if f.deps.Stock == nil || row.ProductID == "" {
		return
	}
	row.StockLoading = true
	tk := f.draft.Enrichment().Issue(row.TempKey, row.ProductID)
	q := catalog.StockQuery{ProductID: row.ProductID, WarehouseID: f.header.WarehouseID}

	forms.Enrich(ctx, f.draft, tk, f.deps.StockTimeout,
		func(lctx context.Context) (catalog.StockLevel, error) {
			return f.deps.Stock.LatestStock(lctx, q)
		},
		func(level catalog.StockLevel, err error) {
			current, ok := f.rows.Get(tk.Row)
			if !ok || current.ProductID != tk.Target {
				return
			}
			current.StockLoading = false
			if err != nil {
				logger.Warn(f.draft.Context(), "system stock lookup failed", "product_id", tk.Target, "error", err)
				f.draft.Notify(notice.Warning("System stock could not be loaded"))
			} else {
				available := level.Available
				current.SystemStock = &available
			}
			_ = f.rows.Set(current)
		})
}

func (f *Form) view() View {
	items := f.rows.Items()
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		out = append(out, ItemView{
			LineItem:        it,
			Variance:        it.Variance(),
			VariancePercent: it.VariancePercent(),
			LineValue:       it.LineValue(),
			UI:              f.rows.UI(it.TempKey),
		})
	}
	v := View{
		ID:        f.draft.ID,
		Kind:      f.draft.Kind,
		RecordID:  f.recordID,
		Number:    f.number,
		State:     f.draft.Workflow().State(),
		Header:    f.header,
		Items:     out,
		Totals:    ComputeTotals(items),
		Notices:   f.draft.Notices(),
		Receipt:   f.draft.Receipt(),
		UpdatedAt: f.draft.UpdatedAt,
	}
	if errs := f.draft.Errors(); !errs.Empty() {
		v.Errors = errs.Map()
	}
	return v
}
