package sales

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/core/apperror"
	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/submit"
)

type fakeCatalog struct {
	products *catalog.Cache[catalog.Product]
}

func (c *fakeCatalog) Product(productID string) (catalog.Product, bool) { return c.products.Get(productID) }

func (c *fakeCatalog) CreateProduct(_ context.Context, in catalog.NewProduct) (catalog.Product, error) {
	return catalog.Product{ID: "new-1", Name: in.Name, StorageUnit: in.StorageUnit, Price: in.Price}, nil
}

func (c *fakeCatalog) Products() *catalog.Cache[catalog.Product] { return c.products }

type fakeBackend struct {
	created []Payload
}

func (b *fakeBackend) CreateSalesOrder(_ context.Context, p Payload) (forms.Receipt, error) {
	b.created = append(b.created, p)
	return forms.Receipt{ID: "so-1", Number: "SO-001"}, nil
}

func (b *fakeBackend) UpdateSalesOrder(_ context.Context, recordID string, p Payload) (forms.Receipt, error) {
	b.created = append(b.created, p)
	return forms.Receipt{ID: recordID}, nil
}

func ptr[T any](v T) *T { return &v }

func newTestForm(t *testing.T) (*Form, *fakeCatalog, *fakeBackend) {
	t.Helper()
	cat := &fakeCatalog{products: catalog.NewCache[catalog.Product]()}
	cat.products.Replace([]catalog.Product{{
		ID: "p-panel", Name: "Solar Panel", Description: "450 Wp",
		StorageUnit: "unit", PurchaseUnit: "pallet", Price: types.Int(2_500_000),
	}}, time.Now())
	backend := &fakeBackend{}
	f := New(context.Background(), Deps{Catalog: cat, Backend: backend})
	t.Cleanup(f.Close)
	return f, cat, backend
}

func item(qty, price int64, discount, tax string) LineItem {
	return LineItem{
		TempKey:         id.New(),
		ItemType:        ItemProduct,
		ProductID:       "p",
		Quantity:        types.Int(qty),
		Unit:            "pcs",
		UnitPrice:       types.Int(price),
		DiscountPercent: types.MustMoney(discount),
		TaxRatePercent:  types.MustMoney(tax),
	}
}

func TestLineItem_Total(t *testing.T) {
	it := item(2, 100000, "10", "11")
	assert.Equal(t, "199800", it.Total().String())
	assert.Equal(t, "20000", it.DiscountAmount().String())
	assert.Equal(t, "19800", it.TaxAmount().String())
}

func TestLineItem_TotalRoundsToMinorUnit(t *testing.T) {
	it := LineItem{
		Quantity:        types.Int(3),
		UnitPrice:       types.MustMoney("33.33"),
		DiscountPercent: types.MustMoney("7.5"),
		TaxRatePercent:  types.MustMoney("11"),
	}
	assert.Equal(t, "102.66", it.Total().String())
	assert.Equal(t, "7.5", it.DiscountAmount().String())
	assert.Equal(t, "10.17", it.TaxAmount().String())
}

func TestComputeTotals_Reconciles(t *testing.T) {
	items := []LineItem{item(2, 100000, "10", "11"), item(1, 5000, "0", "0"), item(7, 333, "2.5", "11")}
	totals := ComputeTotals(items)

	assert.True(t, totals.Subtotal.Sub(totals.DiscountTotal).Add(totals.TaxTotal).Equal(totals.GrandTotal))
	sum := types.Zero()
	for _, it := range items {
		sum = sum.Add(it.Total())
	}
	assert.True(t, sum.Equal(totals.GrandTotal))
}

func TestValidate_SalesRules(t *testing.T) {
	errs := Validate(Header{}, nil)
	assert.True(t, errs.Has("customerId"))
	assert.True(t, errs.Has("date"))
	assert.True(t, errs.Has("items"))

	noProduct := item(0, -1, "101", "-1")
	noProduct.ProductID = ""
	service := item(1, 1, "0", "0")
	service.ItemType = ItemService
	service.ProductID = ""

	errs = Validate(Header{CustomerID: "c1", Date: time.Now()}, []LineItem{noProduct, service})
	m := errs.Map()
	assert.Contains(t, m, "items[0].productId")
	assert.Contains(t, m, "items[0].quantity")
	assert.Contains(t, m, "items[0].unitPrice")
	assert.Contains(t, m, "items[0].discountPercent")
	assert.Contains(t, m, "items[0].taxRatePercent")
	assert.Contains(t, m, "items[1].name")
	assert.NotContains(t, m, "items[1].productId")
}

func TestForm_ProductSelectionFillsRow(t *testing.T) {
	f, _, _ := newTestForm(t)
	it, err := f.AddItem(context.Background(), ItemPatch{ProductID: ptr("p-panel"), Quantity: ptr(types.Int(2))})
	require.NoError(t, err)
	assert.Equal(t, "Solar Panel", it.Name)
	assert.Equal(t, "unit", it.Unit)
	assert.Equal(t, "2500000", it.UnitPrice.String())

	it, err = f.UpdateItem(context.Background(), it.TempKey, ItemPatch{ItemType: ptr(ItemCustom), Name: ptr("Installation")})
	require.NoError(t, err)
	assert.Empty(t, it.ProductID)
	assert.Equal(t, "Installation", it.Name)

	// product edits are ignored on free-text rows
	it, err = f.UpdateItem(context.Background(), it.TempKey, ItemPatch{ProductID: ptr("p-panel")})
	require.NoError(t, err)
	assert.Empty(t, it.ProductID)
}

func TestForm_SubmitSendsRecomputedTotals(t *testing.T) {
	f, _, backend := newTestForm(t)
	_, err := f.UpdateHeader(context.Background(), HeaderPatch{CustomerID: ptr("c1"), ProjectID: ptr("")})
	require.NoError(t, err)
	_, err = f.AddItem(context.Background(), ItemPatch{
		ProductID:       ptr("p-panel"),
		Quantity:        ptr(types.Int(2)),
		DiscountPercent: ptr(types.Int(10)),
		TaxRatePercent:  ptr(types.Int(11)),
	})
	require.NoError(t, err)

	orch := submit.New[Payload](nil, 5)
	out, err := orch.RequestSubmit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateConfirming, out.State)
	out, err = orch.Confirm(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateSuccess, out.State)

	require.Len(t, backend.created, 1)
	p := backend.created[0]
	assert.Nil(t, p.ProjectID)
	assert.Equal(t, "4995000", p.GrandTotal.String())
	assert.Equal(t, "4995000", p.Items[0].LineTotal.String())
}

func TestForm_CreateAndSelectProduct(t *testing.T) {
	f, cat, _ := newTestForm(t)
	it, err := f.AddItem(context.Background(), ItemPatch{ItemType: ptr(ItemService)})
	require.NoError(t, err)
	require.NoError(t, f.SetPicker(it.TempKey, forms.RowUI{PickerOpen: true}))

	got, err := f.CreateAndSelectProduct(context.Background(), it.TempKey, catalog.NewProduct{Name: "Inverter", StorageUnit: "set", Price: types.Int(9_000_000)})
	require.NoError(t, err)
	assert.Equal(t, ItemProduct, got.ItemType)
	assert.Equal(t, "new-1", got.ProductID)
	assert.Equal(t, "set", got.Unit)
	assert.Equal(t, 2, cat.products.Len())
	assert.Equal(t, forms.RowUI{}, f.View(context.Background()).Items[0].UI)
}

func TestForm_RemoveUnknownItem(t *testing.T) {
	f, _, _ := newTestForm(t)
	assert.True(t, apperror.IsNotFound(f.RemoveItem(context.Background(), id.New())))
}

func TestRoundTrip(t *testing.T) {
	items := []LineItem{item(2, 100000, "10", "11"), item(1, 1, "0", "0")}
	items[1].ItemType = ItemCustom
	items[1].ProductID = ""
	items[1].Name = "Freight"
	h := Header{Date: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), CustomerID: "c1"}

	raw, err := json.Marshal(Record{ID: "so-7", Payload: BuildPayload(h, items)})
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))

	f, err := Load(context.Background(), Deps{}, rec)
	require.NoError(t, err)
	defer f.Close()
	v := f.View(context.Background())

	assert.Equal(t, "so-7", v.RecordID)
	assert.Equal(t, h.Date, v.Header.Date)
	require.Len(t, v.Items, 2)
	for i := range items {
		assert.True(t, items[i].Total().Equal(v.Items[i].Total))
		assert.Equal(t, items[i].ItemType, v.Items[i].ItemType)
	}
	assert.Equal(t, "Freight", v.Items[1].Name)
}
