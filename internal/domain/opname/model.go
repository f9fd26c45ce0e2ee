// Package opname implements the stock opname (physical inventory count)
// form: counted rows reconciled against system stock, variance totals and
// submission payloads.
package opname

import (
	"time"

	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
)

// LineItem is one counted product.
type LineItem struct {
	TempKey     id.ID          `json:"tempKey"`
	ProductID   string         `json:"productId,omitempty"`
	ProductName string         `json:"productName,omitempty"`
	Unit        string         `json:"unit,omitempty"`
	// SystemStock is nil until a stock lookup resolves for the product.
	SystemStock *types.Quantity `json:"systemStock"`
	// PhysicalStock is nil until the count is entered.
	PhysicalStock *types.Quantity `json:"physicalStock"`
	UnitCost      types.Money     `json:"unitCost"`
	Note          string          `json:"note,omitempty"`
	StockLoading  bool            `json:"stockLoading,omitempty"`
}

// RowKey implements forms.Keyed.
func (l LineItem) RowKey() id.ID { return l.TempKey }

func (l LineItem) physical() types.Quantity {
	if l.PhysicalStock == nil {
		return types.Zero()
	}
	return *l.PhysicalStock
}

// SystemKnown reports whether the system stock baseline is loaded.
func (l LineItem) SystemKnown() bool { return l.SystemStock != nil && !l.StockLoading }

// Variance is physical − system; nil while the system stock is unknown.
func (l LineItem) Variance() *types.Quantity {
	if !l.SystemKnown() {
		return nil
	}
	v := l.physical().Sub(*l.SystemStock)
	return &v
}

// VariancePercent is variance over system stock in percent; zero when the
// system stock is zero, nil while it is unknown.
func (l LineItem) VariancePercent() *types.Percent {
	v := l.Variance()
	if v == nil {
		return nil
	}
	p := types.PercentOf(*v, *l.SystemStock)
	return &p
}

// LineValue is physical × unit cost.
func (l LineItem) LineValue() types.Money {
	return l.physical().Mul(l.UnitCost)
}

// NewLineItem returns a row with add-item defaults.
func NewLineItem() LineItem {
	return LineItem{
		TempKey:  id.New(),
		UnitCost: types.Zero(),
	}
}

// Header is the opname document header.
type Header struct {
	Date        time.Time `json:"date"`
	WarehouseID string    `json:"warehouseId,omitempty"`
	CounterID   string    `json:"counterId,omitempty"`
	Remarks     string    `json:"remarks,omitempty"`
}

// HeaderPatch carries header edits; nil fields are left unchanged.
type HeaderPatch struct {
	Date        *time.Time
	WarehouseID *string
	CounterID   *string
	Remarks     *string
}

// ItemPatch carries row edits. ClearPhysical resets the count to not entered.
type ItemPatch struct {
	ProductID     *string
	PhysicalStock *types.Quantity
	ClearPhysical bool
	UnitCost      *types.Money
	Note          *string
}

// Totals are the aggregate counts and value of an opname.
type Totals struct {
	SystemTotal   types.Quantity `json:"totalSystemStock"`
	PhysicalTotal types.Quantity `json:"totalPhysicalStock"`
	VarianceTotal types.Quantity `json:"totalVariance"`
	SurplusTotal  types.Quantity `json:"totalSurplus"`
	ShortageTotal types.Quantity `json:"totalShortage"`
	ValueTotal    types.Money    `json:"totalValue"`
}

// ComputeTotals sums every row. Shortage is reported as a positive amount.
// Rows without a known system stock count toward physical and value only.
func ComputeTotals(items []LineItem) Totals {
	t := Totals{
		SystemTotal: types.Zero(), PhysicalTotal: types.Zero(), VarianceTotal: types.Zero(),
		SurplusTotal: types.Zero(), ShortageTotal: types.Zero(), ValueTotal: types.Zero(),
	}
	for _, it := range items {
		t.PhysicalTotal = t.PhysicalTotal.Add(it.physical())
		t.ValueTotal = t.ValueTotal.Add(it.LineValue())
		v := it.Variance()
		if v == nil {
			continue
		}
		t.SystemTotal = t.SystemTotal.Add(*it.SystemStock)
		t.VarianceTotal = t.VarianceTotal.Add(*v)
		if v.IsPositive() {
			t.SurplusTotal = t.SurplusTotal.Add(*v)
		} else {
			t.ShortageTotal = t.ShortageTotal.Sub(*v)
		}
	}
	return t
}
