package opname

import (
	"strings"

	"formdesk/internal/core/id"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/forms"
)

// Payload is the create/update body sent to the backend.
type Payload struct {
	Date        string        `json:"tanggalOpname"`
	WarehouseID string        `json:"warehouseId"`
	CounterID   string        `json:"karyawanId"`
	Remarks     *string       `json:"keterangan"`
	Totals      Totals        `json:"summary"`
	Items       []PayloadItem `json:"items"`
}

// LogFields summarizes the payload for the submission audit line.
func (p Payload) LogFields() []any {
	return []any{
		"warehouse_id", p.WarehouseID, "items", len(p.Items),
		"variance_total", p.Totals.VarianceTotal.String(), "value_total", p.Totals.ValueTotal.String(),
	}
}

// PayloadItem is one counted row on the wire.
type PayloadItem struct {
	ProductID     string         `json:"productId"`
	SystemStock   types.Quantity `json:"stockSistem"`
	PhysicalStock types.Quantity `json:"stockFisik"`
	Variance      types.Quantity `json:"selisih"`
	UnitCost      types.Money    `json:"hargaSatuan"`
	LineValue     types.Money    `json:"totalNilai"`
	Note          *string        `json:"catatan"`
}

// Record is a persisted opname as returned by the backend.
type Record struct {
	ID     string `json:"id"`
	Number string `json:"nomorOpname"`
	Status string `json:"status,omitempty"`
	Payload
}

// BuildPayload denormalizes header and rows, recomputing every derived value.
// Validation guarantees every row has a known system stock.
func BuildPayload(h Header, items []LineItem, counterID string) Payload {
	p := Payload{
		Date:        forms.FormatDate(h.Date),
		WarehouseID: strings.TrimSpace(h.WarehouseID),
		CounterID:   counterID,
		Remarks:     forms.Optional(h.Remarks),
		Totals:      ComputeTotals(items),
		Items:       make([]PayloadItem, 0, len(items)),
	}
	for _, it := range items {
		p.Items = append(p.Items, PayloadItem{
			ProductID:     it.ProductID,
			SystemStock:   orZero(it.SystemStock),
			PhysicalStock: it.physical(),
			Variance:      orZero(it.Variance()),
			UnitCost:      it.UnitCost,
			LineValue:     it.LineValue(),
			Note:          forms.Optional(it.Note),
		})
	}
	return p
}

// FromRecord rebuilds header and rows with fresh temp keys. System stock
// is the baseline recorded with the document.
func FromRecord(rec Record) (Header, []LineItem) {
	h := Header{
		WarehouseID: rec.WarehouseID,
		CounterID:   rec.CounterID,
		Remarks:     forms.Deref(rec.Remarks),
	}
	if d, err := forms.ParseDate(rec.Date); err == nil {
		h.Date = d
	}
	items := make([]LineItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		physical, system := it.PhysicalStock, it.SystemStock
		items = append(items, LineItem{
			TempKey:       id.New(),
			ProductID:     it.ProductID,
			SystemStock:   &system,
			PhysicalStock: &physical,
			UnitCost:      it.UnitCost,
			Note:          forms.Deref(it.Note),
		})
	}
	return h, items
}

func orZero(q *types.Quantity) types.Quantity {
	if q == nil {
		return types.Zero()
	}
	return *q
}
