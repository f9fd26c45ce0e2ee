// Package purchase implements the purchase request (PR) form: line items
// with category-driven units, stock enrichment, category totals, the
// budget guard against a parent request and submission payloads.
package purchase

import (
	"time"

	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
)

// SourceCategory classifies where a line item is sourced from.
type SourceCategory string

const (
	CategoryPurchaseGoods   SourceCategory = "PURCHASE_GOODS"
	CategoryStockWithdrawal SourceCategory = "STOCK_WITHDRAWAL"
	CategoryOperational     SourceCategory = "OPERATIONAL"
	CategoryPurchaseService SourceCategory = "PURCHASE_SERVICE"
	CategoryInternalService SourceCategory = "INTERNAL_SERVICE"
)

// Categories lists every known category.
var Categories = []SourceCategory{
	CategoryPurchaseGoods, CategoryStockWithdrawal, CategoryOperational,
	CategoryPurchaseService, CategoryInternalService,
}

// Known reports whether c is a recognized category.
func (c SourceCategory) Known() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// CostBearing reports whether c is an external cash spend.
func (c SourceCategory) CostBearing() bool {
	switch c {
	case CategoryPurchaseGoods, CategoryOperational, CategoryPurchaseService:
		return true
	}
	return false
}

// InternalUse reports whether c consumes inventory or internal labor (HPP).
func (c SourceCategory) InternalUse() bool {
	return c == CategoryStockWithdrawal || c == CategoryInternalService
}

// CatalogBound reports whether rows of c must reference a product.
func (c SourceCategory) CatalogBound() bool {
	return c == CategoryPurchaseGoods || c == CategoryStockWithdrawal
}

// FIFOPriced reports whether unit cost is set by FIFO costing server-side.
func (c SourceCategory) FIFOPriced() bool {
	return c == CategoryStockWithdrawal
}

// FIFOHint is shown on rows whose unit cost is not user-editable.
const FIFOHint = "Unit cost follows FIFO costing and is set when stock is issued"

// StockStatus is the advisory stock sufficiency of a row.
type StockStatus string

const (
	StockSufficient   StockStatus = "SUFFICIENT"
	StockInsufficient StockStatus = "INSUFFICIENT"
	StockUnknown      StockStatus = "UNKNOWN"
)

// LineItem is one PR detail row.
type LineItem struct {
	TempKey        id.ID          `json:"tempKey"`
	ProductID      string         `json:"productId,omitempty"`
	SourceCategory SourceCategory `json:"sourceCategory"`
	Quantity       types.Quantity `json:"quantity"`
	Unit           string         `json:"unit"`
	UnitCost       types.Money    `json:"unitCost"`
	Note           string         `json:"note,omitempty"`

	// AvailableStock is nil until a lookup for the current product resolves.
	AvailableStock *types.Quantity          `json:"availableStock"`
	StockBreakdown []catalog.StockLocation `json:"stockBreakdown,omitempty"`
	StockLoading   bool                    `json:"stockLoading,omitempty"`
}

// RowKey implements forms.Keyed.
func (l LineItem) RowKey() id.ID { return l.TempKey }

// LineTotal is quantity × unit cost.
func (l LineItem) LineTotal() types.Money {
	return l.Quantity.Mul(l.UnitCost)
}

// Sufficiency returns the stock status and how much is missing.
func (l LineItem) Sufficiency() (StockStatus, types.Quantity) {
	if l.AvailableStock == nil {
		return StockUnknown, types.Zero()
	}
	shortfall := types.Max(types.Zero(), l.Quantity.Sub(*l.AvailableStock))
	if shortfall.IsPositive() {
		return StockInsufficient, shortfall
	}
	return StockSufficient, shortfall
}

func (l *LineItem) clearStock() {
	l.AvailableStock = nil
	l.StockBreakdown = nil
	l.StockLoading = false
}

// NewLineItem returns a row with add-item defaults.
func NewLineItem() LineItem {
	return LineItem{
		TempKey:        id.New(),
		SourceCategory: CategoryPurchaseGoods,
		Quantity:       types.Int(1),
		Unit:           DefaultUnit,
		UnitCost:       types.Zero(),
	}
}

// Header is the PR document header.
type Header struct {
	Date            time.Time `json:"date"`
	RequesterID     string    `json:"requesterId,omitempty"`
	ProjectID       string    `json:"projectId,omitempty"`
	WorkOrderID     string    `json:"spkId,omitempty"`
	ParentRequestID string    `json:"parentRequestId,omitempty"`
	WarehouseID     string    `json:"warehouseId,omitempty"`
	Remarks         string    `json:"remarks,omitempty"`
}

// Linked reports whether the request is attached to a work order.
func (h Header) Linked() bool { return h.WorkOrderID != "" }

// HeaderPatch carries header edits; nil fields are left unchanged and an
// empty string clears a reference.
type HeaderPatch struct {
	Date            *time.Time
	RequesterID     *string
	ProjectID       *string
	WorkOrderID     *string
	ParentRequestID *string
	WarehouseID     *string
	Remarks         *string
}

// ItemPatch carries row edits; nil fields are left unchanged.
type ItemPatch struct {
	ProductID      *string
	SourceCategory *SourceCategory
	Quantity       *types.Quantity
	Unit           *string
	UnitCost       *types.Money
	Note           *string
}
