package upstream

import (
	"context"
	"net/http"
	"net/url"

	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/opname"
	"formdesk/internal/domain/purchase"
	"formdesk/internal/domain/reports"
	"formdesk/internal/domain/sales"
)

var (
	_ purchase.Backend   = (*Client)(nil)
	_ sales.Backend      = (*Client)(nil)
	_ opname.Backend     = (*Client)(nil)
	_ reports.Repository = (*Client)(nil)
)

const (
	pathCreatePR     = "/api/pr/createPurchaseRequest"
	pathUpdatePR     = "/api/pr/updatePurchaseRequest/"
	pathGetPR        = "/api/pr/getPurchaseRequestById/"
	pathCreateSO     = "/api/so/createSalesOrder"
	pathUpdateSO     = "/api/so/updateSalesOrder/"
	pathGetSO        = "/api/so/getSalesOrderById/"
	pathOpname       = "/api/inventory/stock-opname"
	pathTrialBalance = "/api/accounting/trial-balance"
)

// created is the subset of a persisted document echoed on create/update.
type created struct {
	ID       string `json:"id"`
	PRNumber string `json:"nomorPr"`
	SONumber string `json:"soNumber"`
	OPNumber string `json:"nomorOpname"`
}

func (c created) number() string {
	for _, n := range []string{c.PRNumber, c.SONumber, c.OPNumber} {
		if n != "" {
			return n
		}
	}
	return ""
}

func (c *Client) write(ctx context.Context, op, method, path string, body any) (forms.Receipt, error) {
	var out created
	msg, err := c.call(ctx, op, method, path, nil, body, &out)
	if err != nil {
		return forms.Receipt{}, err
	}
	return forms.Receipt{ID: out.ID, Number: out.number(), Message: msg}, nil
}

func (c *Client) CreatePurchaseRequest(ctx context.Context, p purchase.Payload) (forms.Receipt, error) {
	return c.write(ctx, "pr.create", http.MethodPost, pathCreatePR, p)
}

func (c *Client) UpdatePurchaseRequest(ctx context.Context, recordID string, p purchase.Payload) (forms.Receipt, error) {
	r, err := c.write(ctx, "pr.update", http.MethodPut, pathUpdatePR+url.PathEscape(recordID), p)
	if err == nil && r.ID == "" {
		r.ID = recordID
	}
	return r, err
}

// GetPurchaseRequest fetches a persisted PR for editing.
func (c *Client) GetPurchaseRequest(ctx context.Context, recordID string) (purchase.Record, error) {
	var rec purchase.Record
	err := c.get(ctx, "pr.get", pathGetPR+url.PathEscape(recordID), nil, &rec)
	return rec, err
}

func (c *Client) CreateSalesOrder(ctx context.Context, p sales.Payload) (forms.Receipt, error) {
	return c.write(ctx, "so.create", http.MethodPost, pathCreateSO, p)
}

func (c *Client) UpdateSalesOrder(ctx context.Context, recordID string, p sales.Payload) (forms.Receipt, error) {
	r, err := c.write(ctx, "so.update", http.MethodPut, pathUpdateSO+url.PathEscape(recordID), p)
	if err == nil && r.ID == "" {
		r.ID = recordID
	}
	return r, err
}

// GetSalesOrder fetches a persisted SO for editing.
func (c *Client) GetSalesOrder(ctx context.Context, recordID string) (sales.Record, error) {
	var rec sales.Record
	err := c.get(ctx, "so.get", pathGetSO+url.PathEscape(recordID), nil, &rec)
	return rec, err
}

func (c *Client) CreateStockOpname(ctx context.Context, p opname.Payload) (forms.Receipt, error) {
	return c.write(ctx, "opname.create", http.MethodPost, pathOpname, p)
}

func (c *Client) UpdateStockOpname(ctx context.Context, recordID string, p opname.Payload) (forms.Receipt, error) {
	r, err := c.write(ctx, "opname.update", http.MethodPut, pathOpname+"/"+url.PathEscape(recordID), p)
	if err == nil && r.ID == "" {
		r.ID = recordID
	}
	return r, err
}

// GetStockOpname fetches a persisted opname for editing.
func (c *Client) GetStockOpname(ctx context.Context, recordID string) (opname.Record, error) {
	var rec opname.Record
	err := c.get(ctx, "opname.get", pathOpname+"/"+url.PathEscape(recordID), nil, &rec)
	return rec, err
}

// GetTrialBalanceLines implements reports.Repository.
func (c *Client) GetTrialBalanceLines(ctx context.Context, filter reports.TrialBalanceFilter) ([]reports.TrialBalanceLine, error) {
	q := url.Values{
		"startDate": {forms.FormatDate(filter.StartDate)},
		"endDate":   {forms.FormatDate(filter.EndDate)},
	}
	return list[reports.TrialBalanceLine](ctx, c, "trial_balance.get", pathTrialBalance, q)
}
