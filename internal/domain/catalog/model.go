// Package catalog provides the reference data consumed by the forms: products,
// customers, projects, employees, warehouses, work orders (SPK) and parent
// purchase requests.
package catalog

import (
	"strings"

	"formdesk/internal/core/types"
)

// Kind names a reference data set.
type Kind string

const (
	KindProducts       Kind = "products"
	KindCustomers      Kind = "customers"
	KindProjects       Kind = "projects"
	KindEmployees      Kind = "employees"
	KindWarehouses     Kind = "warehouses"
	KindWorkOrders     Kind = "spk"
	KindParentRequests Kind = "parent-requests"
)

// Kinds lists every loadable kind.
var Kinds = []Kind{
	KindProducts, KindCustomers, KindProjects, KindEmployees,
	KindWarehouses, KindWorkOrders, KindParentRequests,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Identifiable is implemented by every reference entity.
type Identifiable interface {
	GetID() string
}

// Product is a catalog entry that line items may reference.
type Product struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	PurchaseUnit string      `json:"purchaseUnit,omitempty"`
	UsageUnit    string      `json:"usageUnit,omitempty"`
	StorageUnit  string      `json:"storageUnit,omitempty"`
	Price        types.Money `json:"price"`
	IsService    bool        `json:"isService,omitempty"`
}

func (p Product) GetID() string { return p.ID }

// NewProduct is the payload for inline product creation.
type NewProduct struct {
	Code         string      `json:"code,omitempty"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	PurchaseUnit string      `json:"purchaseUnit,omitempty"`
	UsageUnit    string      `json:"usageUnit,omitempty"`
	StorageUnit  string      `json:"storageUnit,omitempty"`
	Price        types.Money `json:"price"`
	IsService    bool        `json:"isService,omitempty"`
}

// Normalize trims free text.
func (n *NewProduct) Normalize() {
	n.Code = strings.TrimSpace(n.Code)
	n.Name = strings.TrimSpace(n.Name)
	n.Description = strings.TrimSpace(n.Description)
}

// Customer is a sales order counterparty.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (c Customer) GetID() string { return c.ID }

// Project groups documents for a customer engagement.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CustomerID string `json:"customerId,omitempty"`
}

func (p Project) GetID() string { return p.ID }

// Employee (karyawan) may act as requester.
type Employee struct {
	ID       string `json:"id"`
	Name     string `json:"namaLengkap"`
	Email    string `json:"email,omitempty"`
	Position string `json:"jabatan,omitempty"`
}

func (e Employee) GetID() string { return e.ID }

// Warehouse holds stock.
type Warehouse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func (w Warehouse) GetID() string { return w.ID }

// WorkOrder is an SPK linking a sales order to an execution team.
type WorkOrder struct {
	ID           string `json:"id"`
	Number       string `json:"spkNumber"`
	SalesOrderID string `json:"salesOrderId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	CustomerID   string `json:"customerId,omitempty"`
}

func (w WorkOrder) GetID() string { return w.ID }

// ParentRequest is a completed, budget-bearing purchase request that
// SPK-linked purchase requests draw down against.
type ParentRequest struct {
	ID              string      `json:"id"`
	Number          string      `json:"nomorPr"`
	Status          string      `json:"status"`
	Type            string      `json:"type,omitempty"`
	TotalBudget     types.Money `json:"totalBudget"`
	RemainingBudget types.Money `json:"remainingBudget"`
}

func (p ParentRequest) GetID() string { return p.ID }

// BudgetSnapshot is the read-only budget projection of a parent request.
type BudgetSnapshot struct {
	ParentID        string      `json:"parentId"`
	TotalBudget     types.Money `json:"totalBudget"`
	RemainingBudget types.Money `json:"remainingBudget"`
}

// Snapshot returns the budget projection of the parent.
func (p ParentRequest) Snapshot() BudgetSnapshot {
	return BudgetSnapshot{
		ParentID:        p.ID,
		TotalBudget:     p.TotalBudget,
		RemainingBudget: p.RemainingBudget,
	}
}

// StockLocation is the quantity held at one location.
type StockLocation struct {
	LocationName string         `json:"locationName"`
	Quantity     types.Quantity `json:"quantity"`
}

// StockLevel is the current stock of a product, optionally per warehouse.
type StockLevel struct {
	ProductID   string          `json:"productId"`
	WarehouseID string          `json:"warehouseId,omitempty"`
	Available   types.Quantity  `json:"stock"`
	Breakdown   []StockLocation `json:"details,omitempty"`
}
