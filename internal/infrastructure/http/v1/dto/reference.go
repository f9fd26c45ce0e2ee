package dto

import (
	"formdesk/internal/core/notice"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
)

// CreateProductRequest is the inline product creation body.
type CreateProductRequest struct {
	Code         string       `json:"code" binding:"max=64"`
	Name         string       `json:"name" binding:"required,max=200"`
	Description  string       `json:"description" binding:"max=1000"`
	PurchaseUnit string       `json:"purchaseUnit" binding:"max=32"`
	UsageUnit    string       `json:"usageUnit" binding:"max=32"`
	StorageUnit  string       `json:"storageUnit" binding:"max=32"`
	Price        *types.Money `json:"price"`
	IsService    bool         `json:"isService"`
}

// ToNewProduct converts to the catalog input. A missing price is zero.
func (r CreateProductRequest) ToNewProduct() catalog.NewProduct {
	p := catalog.NewProduct{
		Code:         r.Code,
		Name:         r.Name,
		Description:  r.Description,
		PurchaseUnit: r.PurchaseUnit,
		UsageUnit:    r.UsageUnit,
		StorageUnit:  r.StorageUnit,
		Price:        types.Zero(),
		IsService:    r.IsService,
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	return p
}

// CurrentEmployeeResponse is the employee record of the signed-in user.
type CurrentEmployeeResponse struct {
	Employee *catalog.Employee `json:"employee"`
	Notices  []notice.Notice   `json:"notices,omitempty"`
}
