package purchase

import (
	"context"
	"strings"
	"time"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
	"formdesk/internal/core/notice"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
	"formdesk/pkg/logger"
)

// Catalog is the reference data the form reads.
type Catalog interface {
	Product(productID string) (catalog.Product, bool)
	ParentRequest(parentID string) (catalog.ParentRequest, bool)
	CreateProduct(ctx context.Context, input catalog.NewProduct) (catalog.Product, error)
	Products() *catalog.Cache[catalog.Product]
}

// Backend persists purchase requests.
type Backend interface {
	CreatePurchaseRequest(ctx context.Context, p Payload) (forms.Receipt, error)
	UpdatePurchaseRequest(ctx context.Context, recordID string, p Payload) (forms.Receipt, error)
}

// Deps are the collaborators of a form.
type Deps struct {
	Catalog      Catalog
	Stock        catalog.StockSource
	Backend      Backend
	StockTimeout time.Duration
}

// Form is one PR draft. All methods are safe for concurrent use.
type Form struct {
	draft    *forms.Draft
	deps     Deps
	header   Header
	rows     *forms.Rows[LineItem]
	parent   *catalog.BudgetSnapshot
	employee string
	recordID string
	number   string
}

// New creates an empty PR draft. employeeID is the resolved employee of the
// signed-in user and may be empty.
func New(ctx context.Context, deps Deps, employeeID string) *Form {
	return &Form{
		draft:    forms.NewDraft(ctx, forms.KindPurchaseRequest),
		deps:     deps,
		header:   Header{Date: today()},
		rows:     forms.NewRows[LineItem](),
		employee: employeeID,
	}
}

// Load opens a persisted PR for editing.
func Load(ctx context.Context, deps Deps, rec Record, employeeID string) (*Form, error) {
	f := New(ctx, deps, employeeID)
	f.draft.Lock()
	defer f.draft.Unlock()

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
	f.selectParent(ctx)
	f.refreshStock(ctx)
	return f, nil
}

// Draft returns the shared draft state.
func (f *Form) Draft() *forms.Draft { return f.draft }

// ID returns the draft id.
func (f *Form) ID() id.ID { return f.draft.ID }

// Close discards the draft and cancels its pending lookups.
func (f *Form) Close() { f.draft.Close() }

// UpdateHeader applies header edits.
func (f *Form) UpdateHeader(ctx context.Context, p HeaderPatch) (View, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("edit header"); err != nil {
		return View{}, err
	}

	if p.Date != nil {
		f.header.Date = *p.Date
	}
	if p.RequesterID != nil {
		f.header.RequesterID = strings.TrimSpace(*p.RequesterID)
	}
	if p.ProjectID != nil {
		f.header.ProjectID = strings.TrimSpace(*p.ProjectID)
	}
	if p.WorkOrderID != nil {
		f.header.WorkOrderID = strings.TrimSpace(*p.WorkOrderID)
	}
	if p.Remarks != nil {
		f.header.Remarks = *p.Remarks
	}
	if p.ParentRequestID != nil {
		f.header.ParentRequestID = strings.TrimSpace(*p.ParentRequestID)
		f.selectParent(ctx)
	}
	if p.WarehouseID != nil && strings.TrimSpace(*p.WarehouseID) != f.header.WarehouseID {
		f.header.WarehouseID = strings.TrimSpace(*p.WarehouseID)
		// stock is keyed by warehouse as well
		f.refreshStock(ctx)
	}
	f.draft.Touch()
	return f.view(ctx), nil
}

// AddItem appends a row with defaults and applies p to it.
func (f *Form) AddItem(ctx context.Context, p ItemPatch) (LineItem, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("add item"); err != nil {
		return LineItem{}, err
	}

	row := NewLineItem()
	if err := f.apply(ctx, &row, p); err != nil {
		return LineItem{}, err
	}
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
		err := f.apply(ctx, &row, p)
		return row, err
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

// CreateAndSelectProduct creates a product on the backend, then in one
// locked step appends it to the cache, selects it on the row and closes the
// row's picker.
func (f *Form) CreateAndSelectProduct(ctx context.Context, key id.ID, input catalog.NewProduct) (LineItem, error) {
	f.draft.Lock()
	err := f.draft.Workflow().RequireEditing("create product")
	if err == nil && !f.rows.Has(key) {
		err = apperror.NewNotFound("item", key.String())
	}
	f.draft.Unlock()
	if err != nil {
		return LineItem{}, err
	}

	if strings.TrimSpace(input.Name) == "" {
		return LineItem{}, apperror.NewValidation("product name is required").WithDetail("field", "name")
	}
	product, err := f.deps.Catalog.CreateProduct(ctx, input)
	if err != nil {
		return LineItem{}, err
	}

	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("select product"); err != nil {
		return LineItem{}, err
	}
	f.deps.Catalog.Products().Upsert(product)
	row, err := f.rows.Update(key, func(row LineItem) (LineItem, error) {
		f.selectProduct(ctx, &row, product.ID)
		return row, nil
	})
	if err != nil {
		return LineItem{}, err
	}
	_ = f.rows.SetUI(key, forms.RowUI{})
	f.draft.Notify(notice.New(notice.LevelSuccess, "Product "+product.Name+" created"))
	f.draft.Touch()
	return row, nil
}

// View returns a consistent snapshot of the form.
func (f *Form) View(ctx context.Context) View {
	f.draft.Lock()
	defer f.draft.Unlock()
	return f.view(ctx)
}

// Totals returns the aggregate totals.
func (f *Form) Totals() Totals {
	f.draft.Lock()
	defer f.draft.Unlock()
	return ComputeTotals(f.rows.Items())
}

// Validate implements submit.Document. Callers hold the lock.
func (f *Form) Validate(ctx context.Context) forms.Errors {
	_, resolvable := forms.ResolveRequester(f.requesterChain(ctx)...)
	return Validate(f.header, f.rows.Items(), resolvable)
}

// CheckValidity runs validation without changing workflow state.
func (f *Form) CheckValidity(ctx context.Context) forms.Errors {
	f.draft.Lock()
	defer f.draft.Unlock()
	errs := f.Validate(ctx)
	f.draft.SetErrors(errs)
	return errs
}

// CheckBudget implements submit.Document. A parent that was not cached at
// selection time is resolved again here. Callers hold the lock.
func (f *Form) CheckBudget(ctx context.Context) forms.BudgetCheck {
	if f.parent == nil && f.resolveParent() {
		logger.Info(ctx, "parent budget resolved at submit", "parent_id", f.header.ParentRequestID)
	}
	return Guard(f.header, f.parent, ComputeTotals(f.rows.Items()))
}

// Identity implements submit.Document. Callers hold the lock.
func (f *Form) Identity(ctx context.Context) ([]string, bool) {
	return f.requesterChain(ctx), true
}

// Payload implements submit.Document. Callers hold the lock.
func (f *Form) Payload(requesterID string) Payload {
	return BuildPayload(f.header, f.rows.Items(), requesterID)
}

// Send implements submit.Document.
func (f *Form) Send(ctx context.Context, p Payload) (forms.Receipt, error) {
	if f.recordID != "" {
		return f.deps.Backend.UpdatePurchaseRequest(ctx, f.recordID, p)
	}
	return f.deps.Backend.CreatePurchaseRequest(ctx, p)
}

func (f *Form) requesterChain(ctx context.Context) []string {
	return []string{f.header.RequesterID, f.employee, appctx.GetUserID(ctx)}
}

// apply runs a patch on row. Product changes run first so explicit values
// in the same patch win over catalog defaults.
func (f *Form) apply(ctx context.Context, row *LineItem, p ItemPatch) error {
	if p.UnitCost != nil && !p.UnitCost.Equal(row.UnitCost) {
		category := row.SourceCategory
		if p.SourceCategory != nil {
			category = *p.SourceCategory
		}
		if category.FIFOPriced() {
			return apperror.NewBusinessRule(apperror.CodeFIFOPriceLocked, FIFOHint).
				WithDetail("field", "unitCost")
		}
	}

	if p.ProductID != nil {
		f.selectProduct(ctx, row, strings.TrimSpace(*p.ProductID))
	}
	if p.SourceCategory != nil && *p.SourceCategory != row.SourceCategory {
		row.SourceCategory = *p.SourceCategory
		if product, ok := f.lookupProduct(row.ProductID); ok {
			row.Unit = DeriveUnit(row.SourceCategory, product)
		}
	}
	if p.Quantity != nil {
		row.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		row.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.UnitCost != nil {
		row.UnitCost = *p.UnitCost
	}
	if p.Note != nil {
		row.Note = *p.Note
	}
	return nil
}

// selectProduct sets the row's product and its catalog-derived fields.
func (f *Form) selectProduct(ctx context.Context, row *LineItem, productID string) {
	if productID == row.ProductID {
		return
	}
	row.ProductID = productID
	row.clearStock()
	if productID == "" {
		f.draft.Enrichment().Invalidate(row.TempKey)
		return
	}

	product, ok := f.lookupProduct(productID)
	if !ok {
		// Unknown to the cache: keep the reference, derive nothing.
		logger.Debug(ctx, "selected product not in cache", "product_id", productID)
	} else {
		row.Unit = DeriveUnit(row.SourceCategory, product)
		row.UnitCost = product.Price
		row.Note = strings.TrimSpace(product.Description)
	}
	f.requestStock(ctx, row)
}

// refreshStock re-issues lookups for every row with a product. Callers hold the lock.
func (f *Form) refreshStock(ctx context.Context) {
	for _, row := range f.rows.Items() {
		if row.ProductID != "" {
			f.requestStock(ctx, &row)
			_ = f.rows.Set(row)
		}
	}
}

// requestStock issues a lookup for row's current product. Callers hold the lock.
func (f *Form) requestStock(ctx context.Context, row *LineItem) {
	row.clearStock()
	if f.deps.Stock == nil || row.ProductID == "" {
		return
	}
	row.StockLoading = true
	tk := f.draft.Enrichment().Issue(row.TempKey, row.ProductID)
	q := catalog.StockQuery{ProductID: row.ProductID, WarehouseID: f.header.WarehouseID, Detail: true}

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
				logger.Warn(f.draft.Context(), "stock lookup failed", "product_id", tk.Target, "error", err)
				f.draft.Notify(notice.Warning("Stock level could not be loaded"))
			} else {
				available := level.Available
				current.AvailableStock = &available
				current.StockBreakdown = level.Breakdown
			}
			_ = f.rows.Set(current)
		})
}

func (f *Form) lookupProduct(productID string) (catalog.Product, bool) {
	if productID == "" || f.deps.Catalog == nil {
		return catalog.Product{}, false
	}
	return f.deps.Catalog.Product(productID)
}

// selectParent refreshes the budget snapshot of the selected parent. Callers hold the lock.
func (f *Form) selectParent(ctx context.Context) {
	f.parent = nil
	if f.header.ParentRequestID == "" || f.deps.Catalog == nil {
		return
	}
	if !f.resolveParent() {
		logger.Warn(ctx, "parent request not in cache", "parent_id", f.header.ParentRequestID)
		f.draft.Notify(notice.Warning("Budget of the selected parent request is unavailable"))
	}
}

// resolveParent loads the parent snapshot from the catalog cache.
func (f *Form) resolveParent() bool {
	if f.header.ParentRequestID == "" || f.deps.Catalog == nil {
		return false
	}
	parent, ok := f.deps.Catalog.ParentRequest(f.header.ParentRequestID)
	if !ok {
		return false
	}
	snap := parent.Snapshot()
	f.parent = &snap
	return true
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
