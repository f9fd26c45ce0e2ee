package dto

import (
	"time"

	"formdesk/internal/core/types"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/opname"
	"formdesk/internal/domain/purchase"
	"formdesk/internal/domain/sales"
)

// OpenFormRequest creates a draft. With a record ID the persisted document
// is loaded for editing.
type OpenFormRequest struct {
	RecordID string `json:"recordId" binding:"max=64"`
}

// PickerRequest stores the product picker state of a row.
type PickerRequest struct {
	PickerOpen bool   `json:"pickerOpen"`
	Query      string `json:"query" binding:"max=200"`
}

// ToRowUI converts to the row UI state.
func (r PickerRequest) ToRowUI() forms.RowUI {
	return forms.RowUI{PickerOpen: r.PickerOpen, Query: r.Query}
}

// FormErrorsResponse is the result of an explicit validation request.
type FormErrorsResponse struct {
	Valid   bool              `json:"valid"`
	Errors  map[string]string `json:"errors,omitempty"`
	Summary string            `json:"summary,omitempty"`
}

// NewFormErrorsResponse summarizes errs.
func NewFormErrorsResponse(errs forms.Errors, limit int) FormErrorsResponse {
	if errs.Empty() {
		return FormErrorsResponse{Valid: true}
	}
	return FormErrorsResponse{Errors: errs.Map(), Summary: errs.Summary(limit)}
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := forms.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}

// --- Purchase requests ---

// PurchaseHeaderRequest edits a PR header. Absent fields stay unchanged; an
// empty string clears a reference.
type PurchaseHeaderRequest struct {
	Date            *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	RequesterID     *string `json:"requesterId" binding:"omitempty,max=64"`
	ProjectID       *string `json:"projectId" binding:"omitempty,max=64"`
	WorkOrderID     *string `json:"spkId" binding:"omitempty,max=64"`
	ParentRequestID *string `json:"parentRequestId" binding:"omitempty,max=64"`
	WarehouseID     *string `json:"warehouseId" binding:"omitempty,max=64"`
	Remarks         *string `json:"remarks" binding:"omitempty,max=1000"`
}

// ToPatch converts to the domain patch.
func (r PurchaseHeaderRequest) ToPatch() purchase.HeaderPatch {
	return purchase.HeaderPatch{
		Date:            parseDate(r.Date),
		RequesterID:     r.RequesterID,
		ProjectID:       r.ProjectID,
		WorkOrderID:     r.WorkOrderID,
		ParentRequestID: r.ParentRequestID,
		WarehouseID:     r.WarehouseID,
		Remarks:         r.Remarks,
	}
}

// PurchaseItemRequest edits a PR row.
type PurchaseItemRequest struct {
	ProductID      *string         `json:"productId" binding:"omitempty,max=64"`
	SourceCategory *string         `json:"sourceCategory" binding:"omitempty,oneof=PURCHASE_GOODS STOCK_WITHDRAWAL OPERATIONAL PURCHASE_SERVICE INTERNAL_SERVICE"`
	Quantity       *types.Quantity `json:"quantity"`
	Unit           *string         `json:"unit" binding:"omitempty,max=32"`
	UnitCost       *types.Money    `json:"unitCost"`
	Note           *string         `json:"note" binding:"omitempty,max=1000"`
}

// ToPatch converts to the domain patch.
func (r PurchaseItemRequest) ToPatch() purchase.ItemPatch {
	p := purchase.ItemPatch{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Unit:      r.Unit,
		UnitCost:  r.UnitCost,
		Note:      r.Note,
	}
	if r.SourceCategory != nil {
		c := purchase.SourceCategory(*r.SourceCategory)
		p.SourceCategory = &c
	}
	return p
}

// --- Sales orders ---

// SalesHeaderRequest edits an SO header.
type SalesHeaderRequest struct {
	Date       *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	CustomerID *string `json:"customerId" binding:"omitempty,max=64"`
	ProjectID  *string `json:"projectId" binding:"omitempty,max=64"`
	CustomerPO *string `json:"customerPo" binding:"omitempty,max=100"`
	Remarks    *string `json:"remarks" binding:"omitempty,max=1000"`
}

// ToPatch converts to the domain patch.
func (r SalesHeaderRequest) ToPatch() sales.HeaderPatch {
	return sales.HeaderPatch{
		Date:       parseDate(r.Date),
		CustomerID: r.CustomerID,
		ProjectID:  r.ProjectID,
		CustomerPO: r.CustomerPO,
		Remarks:    r.Remarks,
	}
}

// SalesItemRequest edits an SO row.
type SalesItemRequest struct {
	ItemType        *string         `json:"itemType" binding:"omitempty,oneof=PRODUCT SERVICE CUSTOM"`
	ProductID       *string         `json:"productId" binding:"omitempty,max=64"`
	Name            *string         `json:"name" binding:"omitempty,max=200"`
	Description     *string         `json:"description" binding:"omitempty,max=1000"`
	Quantity        *types.Quantity `json:"quantity"`
	Unit            *string         `json:"unit" binding:"omitempty,max=32"`
	UnitPrice       *types.Money    `json:"unitPrice"`
	DiscountPercent *types.Percent  `json:"discountPercent"`
	TaxRatePercent  *types.Percent  `json:"taxRatePercent"`
}

// ToPatch converts to the domain patch.
func (r SalesItemRequest) ToPatch() sales.ItemPatch {
	p := sales.ItemPatch{
		ProductID:       r.ProductID,
		Name:            r.Name,
		Description:     r.Description,
		Quantity:        r.Quantity,
		Unit:            r.Unit,
		UnitPrice:       r.UnitPrice,
		DiscountPercent: r.DiscountPercent,
		TaxRatePercent:  r.TaxRatePercent,
	}
	if r.ItemType != nil {
		t := sales.ItemType(*r.ItemType)
		p.ItemType = &t
	}
	return p
}

// --- Stock opname ---

// OpnameHeaderRequest edits an opname header.
type OpnameHeaderRequest struct {
	Date        *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	WarehouseID *string `json:"warehouseId" binding:"omitempty,max=64"`
	CounterID   *string `json:"counterId" binding:"omitempty,max=64"`
	Remarks     *string `json:"remarks" binding:"omitempty,max=1000"`
}

// ToPatch converts to the domain patch.
func (r OpnameHeaderRequest) ToPatch() opname.HeaderPatch {
	return opname.HeaderPatch{
		Date:        parseDate(r.Date),
		WarehouseID: r.WarehouseID,
		CounterID:   r.CounterID,
		Remarks:     r.Remarks,
	}
}

// OpnameItemRequest edits a counted row. clearPhysical resets the count to
// "not entered".
type OpnameItemRequest struct {
	ProductID     *string         `json:"productId" binding:"omitempty,max=64"`
	PhysicalStock *types.Quantity `json:"physicalStock"`
	ClearPhysical bool            `json:"clearPhysical"`
	UnitCost      *types.Money    `json:"unitCost"`
	Note          *string         `json:"note" binding:"omitempty,max=1000"`
}

// ToPatch converts to the domain patch.
func (r OpnameItemRequest) ToPatch() opname.ItemPatch {
	return opname.ItemPatch{
		ProductID:     r.ProductID,
		PhysicalStock: r.PhysicalStock,
		ClearPhysical: r.ClearPhysical,
		UnitCost:      r.UnitCost,
		Note:          r.Note,
	}
}
