package purchase

import (
	"strings"

	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/forms"
)

// Payload is the create/update body sent to the backend.
type Payload struct {
	Date              string        `json:"tanggal"`
	RequesterID       string        `json:"karyawanId"`
	ProjectID         *string       `json:"projectId"`
	WorkOrderID       *string       `json:"spkId"`
	ParentRequestID   *string       `json:"parentPrId"`
	WarehouseID       *string       `json:"warehouseId"`
	Remarks           string        `json:"keterangan"`
	CostCategoryTotal types.Money   `json:"costCategoryTotal"`
	InternalUseTotal  types.Money   `json:"internalUseTotal"`
	GrandTotal        types.Money   `json:"grandTotal"`
	Items             []PayloadItem `json:"details"`
}

// LogFields summarizes the payload for the submission audit line.
func (p Payload) LogFields() []any {
	parent := ""
	if p.ParentRequestID != nil {
		parent = *p.ParentRequestID
	}
	return []any{
		"requester_id", p.RequesterID, "parent_id", parent, "items", len(p.Items),
		"cost_total", p.CostCategoryTotal.String(), "grand_total", p.GrandTotal.String(),
	}
}

// PayloadItem is one detail row on the wire.
type PayloadItem struct {
	ProductID      *string        `json:"productId"`
	SourceCategory SourceCategory `json:"sourceProduct"`
	Quantity       types.Quantity `json:"quantity"`
	Unit           string         `json:"satuan"`
	UnitCost       types.Money    `json:"estimasiHargaSatuan"`
	LineTotal      types.Money    `json:"estimasiTotalHarga"`
	Note           *string        `json:"catatanItem"`
}

// Record is a persisted PR as returned by the backend.
type Record struct {
	ID     string `json:"id"`
	Number string `json:"nomorPr"`
	Status string `json:"status,omitempty"`
	Payload
}

// BuildPayload denormalizes header and rows. Line totals are recomputed
// from quantity and unit cost here.
func BuildPayload(h Header, items []LineItem, requesterID string) Payload {
	totals := ComputeTotals(items)
	p := Payload{
		Date:              forms.FormatDate(h.Date),
		RequesterID:       requesterID,
		ProjectID:         forms.Optional(h.ProjectID),
		WorkOrderID:       forms.Optional(h.WorkOrderID),
		ParentRequestID:   forms.Optional(h.ParentRequestID),
		WarehouseID:       forms.Optional(h.WarehouseID),
		Remarks:           strings.TrimSpace(h.Remarks),
		CostCategoryTotal: totals.CostCategoryTotal,
		InternalUseTotal:  totals.InternalUseTotal,
		GrandTotal:        totals.GrandTotal,
		Items:             make([]PayloadItem, 0, len(items)),
	}
	for _, it := range items {
		p.Items = append(p.Items, PayloadItem{
			ProductID:      forms.Optional(it.ProductID),
			SourceCategory: it.SourceCategory,
			Quantity:       it.Quantity,
			Unit:           strings.TrimSpace(it.Unit),
			UnitCost:       it.UnitCost,
			LineTotal:      it.Quantity.Mul(it.UnitCost),
			Note:           forms.Optional(it.Note),
		})
	}
	return p
}

// FromRecord rebuilds header and rows from a persisted PR. Every row gets a
// fresh temp key; stock fields start unknown.
func FromRecord(rec Record) (Header, []LineItem) {
	h := Header{
		RequesterID:     rec.RequesterID,
		ProjectID:       forms.Deref(rec.ProjectID),
		WorkOrderID:     forms.Deref(rec.WorkOrderID),
		ParentRequestID: forms.Deref(rec.ParentRequestID),
		WarehouseID:     forms.Deref(rec.WarehouseID),
		Remarks:         rec.Remarks,
	}
	if d, err := forms.ParseDate(rec.Date); err == nil {
		h.Date = d
	}
	items := make([]LineItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, LineItem{
			TempKey:        id.New(),
			ProductID:      forms.Deref(it.ProductID),
			SourceCategory: it.SourceCategory,
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			UnitCost:       it.UnitCost,
			Note:           forms.Deref(it.Note),
		})
	}
	return h, items
}
