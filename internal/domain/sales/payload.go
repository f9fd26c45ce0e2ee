package sales

import (
	"strings"

	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/forms"
)

// Payload is the create/update body sent to the backend.
type Payload struct {
	Date          string        `json:"soDate"`
	CustomerID    string        `json:"customerId"`
	ProjectID     *string       `json:"projectId"`
	CustomerPO    *string       `json:"poNumber"`
	Remarks       string        `json:"notes"`
	Subtotal      types.Money   `json:"subtotal"`
	DiscountTotal types.Money   `json:"discountTotal"`
	TaxTotal      types.Money   `json:"taxTotal"`
	GrandTotal    types.Money   `json:"grandTotal"`
	Items         []PayloadItem `json:"items"`
}

// LogFields summarizes the payload for the submission audit line.
func (p Payload) LogFields() []any {
	return []any{"customer_id", p.CustomerID, "items", len(p.Items), "grand_total", p.GrandTotal.String()}
}

// PayloadItem is one SO row on the wire.
type PayloadItem struct {
	ItemType    ItemType       `json:"itemType"`
	ProductID   *string        `json:"productId"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Quantity    types.Quantity `json:"quantity"`
	Unit        string         `json:"uom"`
	UnitPrice   types.Money    `json:"unitPrice"`
	Discount    types.Percent  `json:"discount"`
	TaxRate     types.Percent  `json:"taxRate"`
	LineTotal   types.Money    `json:"lineTotal"`
}

// Record is a persisted SO as returned by the backend.
type Record struct {
	ID     string `json:"id"`
	Number string `json:"soNumber"`
	Status string `json:"status,omitempty"`
	Payload
}

// BuildPayload denormalizes header and rows, recomputing every total.
func BuildPayload(h Header, items []LineItem) Payload {
	totals := ComputeTotals(items)
	p := Payload{
		Date:          forms.FormatDate(h.Date),
		CustomerID:    strings.TrimSpace(h.CustomerID),
		ProjectID:     forms.Optional(h.ProjectID),
		CustomerPO:    forms.Optional(h.CustomerPO),
		Remarks:       strings.TrimSpace(h.Remarks),
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		TaxTotal:      totals.TaxTotal,
		GrandTotal:    totals.GrandTotal,
		Items:         make([]PayloadItem, 0, len(items)),
	}
	for _, it := range items {
		productID := forms.Optional(it.ProductID)
		if it.ItemType.FreeText() {
			productID = nil
		}
		p.Items = append(p.Items, PayloadItem{
			ItemType:    it.ItemType,
			ProductID:   productID,
			Name:        strings.TrimSpace(it.Name),
			Description: forms.Optional(it.Description),
			Quantity:    it.Quantity,
			Unit:        strings.TrimSpace(it.Unit),
			UnitPrice:   it.UnitPrice,
			Discount:    it.DiscountPercent,
			TaxRate:     it.TaxRatePercent,
			LineTotal:   it.Total(),
		})
	}
	return p
}

// FromRecord rebuilds header and rows from a persisted SO with fresh temp keys.
func FromRecord(rec Record) (Header, []LineItem) {
	h := Header{
		CustomerID: rec.CustomerID,
		ProjectID:  forms.Deref(rec.ProjectID),
		CustomerPO: forms.Deref(rec.CustomerPO),
		Remarks:    rec.Remarks,
	}
	if d, err := forms.ParseDate(rec.Date); err == nil {
		h.Date = d
	}
	items := make([]LineItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, LineItem{
			TempKey:         id.New(),
			ItemType:        it.ItemType,
			ProductID:       forms.Deref(it.ProductID),
			Name:            it.Name,
			Description:     forms.Deref(it.Description),
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.Discount,
			TaxRatePercent:  it.TaxRate,
		})
	}
	return h, items
}
