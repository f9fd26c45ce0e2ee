package sales

import (
	"context"
	"strings"
	"time"

	"formdesk/internal/core/apperror"
	"formdesk/internal/core/id"
	"formdesk/internal/core/notice"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
)

// Catalog is the reference data the form reads.
type Catalog interface {
	Product(productID string) (catalog.Product, bool)
	CreateProduct(ctx context.Context, input catalog.NewProduct) (catalog.Product, error)
	Products() *catalog.Cache[catalog.Product]
}

// Backend persists sales orders.
type Backend interface {
	CreateSalesOrder(ctx context.Context, p Payload) (forms.Receipt, error)
	UpdateSalesOrder(ctx context.Context, recordID string, p Payload) (forms.Receipt, error)
}

// Deps are the collaborators of a form.
type Deps struct {
	Catalog Catalog
	Backend Backend
}

// Form is one SO draft.
type Form struct {
	draft    *forms.Draft
	deps     Deps
	header   Header
	rows     *forms.Rows[LineItem]
	recordID string
	number   string
}

// ItemView is a row with its derived amounts.
type ItemView struct {
	LineItem
	Gross    types.Money `json:"gross"`
	Discount types.Money `json:"discountAmount"`
	Tax      types.Money `json:"taxAmount"`
	Total    types.Money `json:"total"`
	UI       forms.RowUI `json:"ui"`
}

// View is a read-only snapshot of an SO draft.
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

// New creates an empty SO draft.
func New(ctx context.Context, deps Deps) *Form {
	now := time.Now().UTC()
	return &Form{
		draft:  forms.NewDraft(ctx, forms.KindSalesOrder),
		deps:   deps,
		header: Header{Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)},
		rows:   forms.NewRows[LineItem](),
	}
}

// Load opens a persisted SO for editing.
func Load(ctx context.Context, deps Deps, rec Record) (*Form, error) {
	f := New(ctx, deps)
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

// Close discards the draft.
func (f *Form) Close() { f.draft.Close() }

// UpdateHeader applies header edits.
func (f *Form) UpdateHeader(_ context.Context, p HeaderPatch) (View, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("edit header"); err != nil {
		return View{}, err
	}
	if p.Date != nil {
		f.header.Date = *p.Date
	}
	if p.CustomerID != nil {
		f.header.CustomerID = strings.TrimSpace(*p.CustomerID)
	}
	if p.ProjectID != nil {
		f.header.ProjectID = strings.TrimSpace(*p.ProjectID)
	}
	if p.CustomerPO != nil {
		f.header.CustomerPO = strings.TrimSpace(*p.CustomerPO)
	}
	if p.Remarks != nil {
		f.header.Remarks = *p.Remarks
	}
	f.draft.Touch()
	return f.view(), nil
}

// AddItem appends a row with defaults and applies p to it.
func (f *Form) AddItem(_ context.Context, p ItemPatch) (LineItem, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("add item"); err != nil {
		return LineItem{}, err
	}
	row := NewLineItem()
	f.apply(&row, p)
	if err := f.rows.Add(row); err != nil {
		return LineItem{}, err
	}
	f.draft.Touch()
	return row, nil
}

// UpdateItem applies p to the row with key.
func (f *Form) UpdateItem(_ context.Context, key id.ID, p ItemPatch) (LineItem, error) {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("edit item"); err != nil {
		return LineItem{}, err
	}
	row, err := f.rows.Update(key, func(row LineItem) (LineItem, error) {
		f.apply(&row, p)
		return row, nil
	})
	if err != nil {
		return LineItem{}, err
	}
	f.draft.Touch()
	return row, nil
}

// RemoveItem deletes the row.
func (f *Form) RemoveItem(_ context.Context, key id.ID) error {
	f.draft.Lock()
	defer f.draft.Unlock()
	if err := f.draft.Workflow().RequireEditing("remove item"); err != nil {
		return err
	}
	if err := f.rows.Remove(key); err != nil {
		return err
	}
	f.draft.Touch()
	return nil
}

// SetPicker stores the product picker state of a row.
func (f *Form) SetPicker(key id.ID, state forms.RowUI) error {
	f.draft.Lock()
	defer f.draft.Unlock()
	return f.rows.SetUI(key, state)
}

// CreateAndSelectProduct creates a product, then in one locked step appends
// it to the cache, selects it on the row and closes the row's picker.
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
		row.ItemType = ItemProduct
		f.selectProduct(&row, product.ID)
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
func (f *Form) Validate(_ context.Context) forms.Errors {
	return Validate(f.header, f.rows.Items())
}

// CheckBudget implements submit.Document; sales orders carry no budget.
func (f *Form) CheckBudget(context.Context) forms.BudgetCheck { return forms.BudgetCheck{} }

// Identity implements submit.Document; no requester is recorded.
func (f *Form) Identity(context.Context) ([]string, bool) { return nil, false }

// Payload implements submit.Document. Callers hold the lock.
func (f *Form) Payload(string) Payload {
	return BuildPayload(f.header, f.rows.Items())
}

// Send implements submit.Document.
func (f *Form) Send(ctx context.Context, p Payload) (forms.Receipt, error) {
	if f.recordID != "" {
		return f.deps.Backend.UpdateSalesOrder(ctx, f.recordID, p)
	}
	return f.deps.Backend.CreateSalesOrder(ctx, p)
}

func (f *Form) apply(row *LineItem, p ItemPatch) {
	if p.ItemType != nil && *p.ItemType != row.ItemType {
		row.ItemType = *p.ItemType
		if row.ItemType.FreeText() {
			row.ProductID = ""
		}
	}
	if p.ProductID != nil && row.ItemType == ItemProduct {
		f.selectProduct(row, strings.TrimSpace(*p.ProductID))
	}
	if p.Name != nil {
		row.Name = *p.Name
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	if p.Quantity != nil {
		row.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		row.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.UnitPrice != nil {
		row.UnitPrice = *p.UnitPrice
	}
	if p.DiscountPercent != nil {
		row.DiscountPercent = *p.DiscountPercent
	}
	if p.TaxRatePercent != nil {
		row.TaxRatePercent = *p.TaxRatePercent
	}
}

func (f *Form) selectProduct(row *LineItem, productID string) {
	if productID == row.ProductID {
		return
	}
	row.ProductID = productID
	if productID == "" || f.deps.Catalog == nil {
		return
	}
	if product, ok := f.deps.Catalog.Product(productID); ok {
		row.Name = product.Name
		row.Description = strings.TrimSpace(product.Description)
		row.Unit = productUnit(product)
		row.UnitPrice = product.Price
	}
}

func (f *Form) view() View {
	items := f.rows.Items()
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		out = append(out, ItemView{
			LineItem: it,
			Gross:    it.Gross(),
			Discount: it.DiscountAmount(),
			Tax:      it.TaxAmount(),
			Total:    it.Total(),
			UI:       f.rows.UI(it.TempKey),
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
