package opname

import (
	"strings"

	"formdesk/internal/domain/forms"
)

// Validate runs every document and row rule. counterResolvable tells
// whether the counter fallback chain resolves when none is selected.
func Validate(h Header, items []LineItem, counterResolvable bool) forms.Errors {
	var errs forms.Errors

	if strings.TrimSpace(h.WarehouseID) == "" {
		errs.Add("warehouseId", "Warehouse is required")
	}
	if h.Date.IsZero() {
		errs.Add("date", "Date is required")
	}
	if strings.TrimSpace(h.CounterID) == "" && !counterResolvable {
		errs.Add("counterId", "Counter is required")
	}
	if len(items) == 0 {
		errs.Add("items", "At least one item is required")
	}

	seen := make(map[string]int, len(items))
	for i, it := range items {
		row := i + 1
		if it.ProductID == "" {
			errs.Addf(forms.ItemField(i, "productId"), "Item %d: product is required", row)
		} else if first, dup := seen[it.ProductID]; dup {
			errs.Addf(forms.ItemField(i, "productId"), "Item %d: product already counted in item %d", row, first+1)
		} else {
			seen[it.ProductID] = i
		}
		if it.ProductID != "" {
			switch {
			case it.StockLoading:
				errs.Addf(forms.ItemField(i, "systemStock"), "Item %d: system stock is still loading", row)
			case it.SystemStock == nil:
				errs.Addf(forms.ItemField(i, "systemStock"), "Item %d: system stock is unavailable, select the product again to retry", row)
			}
		}
		switch {
		case it.PhysicalStock == nil:
			errs.Addf(forms.ItemField(i, "physicalStock"), "Item %d: physical count is required", row)
		case it.PhysicalStock.IsNegative():
			errs.Addf(forms.ItemField(i, "physicalStock"), "Item %d: physical count cannot be negative", row)
		}
		if it.UnitCost.IsNegative() {
			errs.Addf(forms.ItemField(i, "unitCost"), "Item %d: unit cost cannot be negative", row)
		}
	}
	return errs
}
