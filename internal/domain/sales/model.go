// Package sales implements the sales order (SO) form: priced line items
// with discount and tax, order totals and submission payloads.
package sales

import (
	"strings"
	"time"

	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
)

// ItemType gates whether a row references the catalog or carries free text.
type ItemType string

const (
	ItemProduct ItemType = "PRODUCT"
	ItemService ItemType = "SERVICE"
	ItemCustom  ItemType = "CUSTOM"
)

// Known reports whether t is a recognized item type.
func (t ItemType) Known() bool {
	return t == ItemProduct || t == ItemService || t == ItemCustom
}

// FreeText reports whether rows of t are described by name and description.
func (t ItemType) FreeText() bool { return t == ItemService || t == ItemCustom }

const defaultUnit = "pcs"

// LineItem is one SO row.
type LineItem struct {
	TempKey         id.ID          `json:"tempKey"`
	ItemType        ItemType       `json:"itemType"`
	ProductID       string         `json:"productId,omitempty"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Quantity        types.Quantity `json:"quantity"`
	Unit            string         `json:"unit"`
	UnitPrice       types.Money    `json:"unitPrice"`
	DiscountPercent types.Percent  `json:"discountPercent"`
	TaxRatePercent  types.Percent  `json:"taxRatePercent"`
}

// RowKey implements forms.Keyed.
func (l LineItem) RowKey() id.ID { return l.TempKey }

// Gross is quantity × unit price.
func (l LineItem) Gross() types.Money {
	return l.Quantity.Mul(l.UnitPrice)
}

// Total is gross × (1 − discount/100) × (1 + tax/100) at minor-unit precision.
func (l LineItem) Total() types.Money {
	return types.RoundMoney(l.Gross().
		Mul(types.DiscountFactor(l.DiscountPercent)).
		Mul(types.TaxFactor(l.TaxRatePercent)))
}

// DiscountAmount is the discount taken off gross.
func (l LineItem) DiscountAmount() types.Money {
	return types.RoundMoney(l.Gross().Mul(l.DiscountPercent).Div(types.Int(100)))
}

// TaxAmount is the remainder of Total over the discounted gross, so that
// gross − discount + tax always equals Total.
func (l LineItem) TaxAmount() types.Money {
	return l.Total().Sub(l.Gross().Sub(l.DiscountAmount()))
}

// NewLineItem returns a row with add-item defaults.
func NewLineItem() LineItem {
	return LineItem{
		TempKey:         id.New(),
		ItemType:        ItemProduct,
		Quantity:        types.Int(1),
		Unit:            defaultUnit,
		UnitPrice:       types.Zero(),
		DiscountPercent: types.Zero(),
		TaxRatePercent:  types.Zero(),
	}
}

// productUnit is the selling unit of p.
func productUnit(p catalog.Product) string {
	for _, u := range []string{p.StorageUnit, p.UsageUnit, p.PurchaseUnit} {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return defaultUnit
}

// Header is the SO document header.
type Header struct {
	Date       time.Time `json:"date"`
	CustomerID string    `json:"customerId,omitempty"`
	ProjectID  string    `json:"projectId,omitempty"`
	CustomerPO string    `json:"customerPo,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
}

// HeaderPatch carries header edits; nil fields are left unchanged.
type HeaderPatch struct {
	Date       *time.Time
	CustomerID *string
	ProjectID  *string
	CustomerPO *string
	Remarks    *string
}

// ItemPatch carries row edits; nil fields are left unchanged.
type ItemPatch struct {
	ItemType        *ItemType
	ProductID       *string
	Name            *string
	Description     *string
	Quantity        *types.Quantity
	Unit            *string
	UnitPrice       *types.Money
	DiscountPercent *types.Percent
	TaxRatePercent  *types.Percent
}

// Totals are the aggregate amounts of an SO.
type Totals struct {
	Subtotal      types.Money `json:"subtotal"`
	DiscountTotal types.Money `json:"discountTotal"`
	TaxTotal      types.Money `json:"taxTotal"`
	GrandTotal    types.Money `json:"grandTotal"`
}

// ComputeTotals sums every row. GrandTotal equals the sum of row totals.
func ComputeTotals(items []LineItem) Totals {
	t := Totals{Subtotal: types.Zero(), DiscountTotal: types.Zero(), TaxTotal: types.Zero(), GrandTotal: types.Zero()}
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.Gross())
		t.DiscountTotal = t.DiscountTotal.Add(it.DiscountAmount())
		t.TaxTotal = t.TaxTotal.Add(it.TaxAmount())
		t.GrandTotal = t.GrandTotal.Add(it.Total())
	}
	return t
}
