package purchase

import (
	"strings"

	"formdesk/internal/domain/forms"
)

// Validate runs every document and row rule. requesterResolvable tells
// whether the requester fallback chain resolves when no requester is
// selected.
func Validate(h Header, items []LineItem, requesterResolvable bool) forms.Errors {
	var errs forms.Errors

	if h.Date.IsZero() {
		errs.Add("date", "Date is required")
	}
	if strings.TrimSpace(h.RequesterID) == "" && !requesterResolvable {
		errs.Add("requesterId", "Requester is required")
	}
	if h.Linked() && strings.TrimSpace(h.ParentRequestID) == "" {
		errs.Add("parentRequestId", "Parent request is required for work-order requests")
	}
	if len(items) == 0 {
		errs.Add("items", "At least one item is required")
	}

	for i, it := range items {
		row := i + 1
		if !it.SourceCategory.Known() {
			errs.Addf(forms.ItemField(i, "sourceCategory"), "Item %d: source category is required", row)
		}
		if it.SourceCategory.CatalogBound() && it.ProductID == "" {
			errs.Addf(forms.ItemField(i, "productId"), "Item %d: product is required", row)
		}
		if !it.Quantity.IsPositive() {
			errs.Addf(forms.ItemField(i, "quantity"), "Item %d: quantity must be greater than zero", row)
		}
		if it.UnitCost.IsNegative() {
			errs.Addf(forms.ItemField(i, "unitCost"), "Item %d: unit cost cannot be negative", row)
		}
		if strings.TrimSpace(it.Unit) == "" {
			errs.Addf(forms.ItemField(i, "unit"), "Item %d: unit is required", row)
		}
	}
	return errs
}
