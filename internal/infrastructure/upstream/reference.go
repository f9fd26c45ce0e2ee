package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"formdesk/internal/domain/catalog"
)

var (
	_ catalog.Source      = (*Client)(nil)
	_ catalog.StockSource = (*Client)(nil)
)

// Backend paths of reference data.
const (
	pathEmployees       = "/api/master/karyawan/getAllKaryawan"
	pathEmployeeByEmail = "/api/master/karyawan/getKaryawanByEmail"
	pathCustomers       = "/api/master/customer/getAllCustomers"
	pathProjects        = "/api/master/project/getAllProjects"
	pathProducts        = "/api/master/product/getAllProducts"
	pathCreateProduct   = "/api/master/product/createProduct"
	pathWarehouses      = "/api/master/warehouse/getAllWarehouses"
	pathWorkOrders      = "/api/spk/getAllSpk"
	pathParentRequests  = "/api/pr/getAllPurchaseRequests"
	pathLatestStock     = "/api/inventory/latest-stock"
)

func list[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	var out []T
	if err := c.get(ctx, op, path, query, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return list[catalog.Product](ctx, c, "products.list", pathProducts, nil)
}

func (c *Client) ListCustomers(ctx context.Context) ([]catalog.Customer, error) {
	return list[catalog.Customer](ctx, c, "customers.list", pathCustomers, nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	return list[catalog.Project](ctx, c, "projects.list", pathProjects, nil)
}

func (c *Client) ListEmployees(ctx context.Context) ([]catalog.Employee, error) {
	return list[catalog.Employee](ctx, c, "employees.list", pathEmployees, nil)
}

func (c *Client) ListWarehouses(ctx context.Context) ([]catalog.Warehouse, error) {
	return list[catalog.Warehouse](ctx, c, "warehouses.list", pathWarehouses, nil)
}

func (c *Client) ListWorkOrders(ctx context.Context) ([]catalog.WorkOrder, error) {
	return list[catalog.WorkOrder](ctx, c, "workorders.list", pathWorkOrders, nil)
}

// ListParentRequests lists candidate parent purchase requests; empty filter
// fields are omitted from the query.
func (c *Client) ListParentRequests(ctx context.Context, filter catalog.ParentFilter) ([]catalog.ParentRequest, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	return list[catalog.ParentRequest](ctx, c, "parents.list", pathParentRequests, q)
}

// EmployeeByEmail resolves the employee record of a signed-in user.
func (c *Client) EmployeeByEmail(ctx context.Context, email string) (catalog.Employee, error) {
	var e catalog.Employee
	err := c.get(ctx, "employees.by_email", pathEmployeeByEmail, url.Values{"email": {email}}, &e)
	return e, err
}

// CreateProduct creates a catalog product.
func (c *Client) CreateProduct(ctx context.Context, input catalog.NewProduct) (catalog.Product, error) {
	input.Normalize()
	var p catalog.Product
	if _, err := c.call(ctx, "products.create", http.MethodPost, pathCreateProduct, nil, input, &p); err != nil {
		return catalog.Product{}, err
	}
	// some backends echo only the id
	if p.Name == "" {
		p.Name = input.Name
		p.Code = input.Code
		p.Description = input.Description
		p.PurchaseUnit = input.PurchaseUnit
		p.UsageUnit = input.UsageUnit
		p.StorageUnit = input.StorageUnit
		p.Price = input.Price
		p.IsService = input.IsService
	}
	return p, nil
}

// LatestStock looks up the current stock of a product.
func (c *Client) LatestStock(ctx context.Context, q catalog.StockQuery) (catalog.StockLevel, error) {
	query := url.Values{"productId": {q.ProductID}}
	if q.WarehouseID != "" {
		query.Set("warehouseId", q.WarehouseID)
	}
	if q.Detail {
		query.Set("detail", "true")
	}
	var lvl catalog.StockLevel
	if err := c.get(ctx, "stock.latest", pathLatestStock, query, &lvl); err != nil {
		return catalog.StockLevel{}, err
	}
	if lvl.ProductID == "" {
		lvl.ProductID = q.ProductID
	}
	return lvl, nil
}
