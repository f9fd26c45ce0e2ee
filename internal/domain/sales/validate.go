package sales

import (
	"strings"

	"formdesk/internal/core/types"
	"formdesk/internal/domain/forms"
)

// Validate runs every document and row rule.
func Validate(h Header, items []LineItem) forms.Errors {
	var errs forms.Errors

	if strings.TrimSpace(h.CustomerID) == "" {
		errs.Add("customerId", "Customer is required")
	}
	if h.Date.IsZero() {
		errs.Add("date", "Date is required")
	}
	if len(items) == 0 {
		errs.Add("items", "At least one item is required")
	}

	for i, it := range items {
		row := i + 1
		switch {
		case !it.ItemType.Known():
			errs.Addf(forms.ItemField(i, "itemType"), "Item %d: item type is required", row)
		case it.ItemType == ItemProduct && it.ProductID == "":
			errs.Addf(forms.ItemField(i, "productId"), "Item %d: product is required", row)
		case it.ItemType.FreeText() && strings.TrimSpace(it.Name) == "":
			errs.Addf(forms.ItemField(i, "name"), "Item %d: name is required", row)
		}
		if !it.Quantity.IsPositive() {
			errs.Addf(forms.ItemField(i, "quantity"), "Item %d: quantity must be greater than zero", row)
		}
		if it.UnitPrice.IsNegative() {
			errs.Addf(forms.ItemField(i, "unitPrice"), "Item %d: unit price cannot be negative", row)
		}
		if !types.InPercentRange(it.DiscountPercent) {
			errs.Addf(forms.ItemField(i, "discountPercent"), "Item %d: discount must be between 0 and 100", row)
		}
		if !types.InPercentRange(it.TaxRatePercent) {
			errs.Addf(forms.ItemField(i, "taxRatePercent"), "Item %d: tax rate must be between 0 and 100", row)
		}
		if strings.TrimSpace(it.Unit) == "" {
			errs.Addf(forms.ItemField(i, "unit"), "Item %d: unit is required", row)
		}
	}
	return errs
}
