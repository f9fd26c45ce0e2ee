package submit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/types"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/purchase"
	"formdesk/pkg/logger"
)

type prCatalog struct {
	products *catalog.Cache[catalog.Product]
	parents  map[string]catalog.ParentRequest
}

func (c *prCatalog) Product(id string) (catalog.Product, bool) { return c.products.Get(id) }
func (c *prCatalog) ParentRequest(id string) (catalog.ParentRequest, bool) {
	p, ok := c.parents[id]
	return p, ok
}
func (c *prCatalog) CreateProduct(context.Context, catalog.NewProduct) (catalog.Product, error) {
	return catalog.Product{}, apperror.NewValidation("not supported")
}
func (c *prCatalog) Products() *catalog.Cache[catalog.Product] { return c.products }

type prBackend struct {
	calls []purchase.Payload
	err   error
}

func (b *prBackend) CreatePurchaseRequest(_ context.Context, p purchase.Payload) (forms.Receipt, error) {
	b.calls = append(b.calls, p)
	if b.err != nil {
		return forms.Receipt{}, b.err
	}
	return forms.Receipt{ID: "pr-1", Number: "PR/001"}, nil
}

func (b *prBackend) UpdatePurchaseRequest(ctx context.Context, _ string, p purchase.Payload) (forms.Receipt, error) {
	return b.CreatePurchaseRequest(ctx, p)
}

type stubRefresher struct {
	err   error
	token string
	calls int
}

func (r *stubRefresher) Ensure(ctx context.Context) (context.Context, error) {
	r.calls++
	if r.err != nil {
		return ctx, r.err
	}
	if r.token == "" {
		return ctx, nil
	}
	u := *appctx.GetUser(ctx)
	u.Token = r.token
	return appctx.WithUser(ctx, &u), nil
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "user-1", Token: "old"})
}

func ptr[T any](v T) *T { return &v }

func newPR(t *testing.T, backend *prBackend, remaining int64) *purchase.Form {
	t.Helper()
	cat := &prCatalog{products: catalog.NewCache[catalog.Product](), parents: map[string]catalog.ParentRequest{
		"parent-1": {ID: "parent-1", TotalBudget: types.Int(5_000_000), RemainingBudget: types.Int(remaining)},
	}}
	f := purchase.New(userCtx(), purchase.Deps{Catalog: cat, Backend: backend}, "emp-1")
	t.Cleanup(f.Close)
	return f
}

func addCostRow(t *testing.T, f *purchase.Form, qty, cost int64) {
	t.Helper()
	_, err := f.AddItem(context.Background(), purchase.ItemPatch{
		SourceCategory: ptr(purchase.CategoryOperational),
		Quantity:       ptr(types.Int(qty)),
		UnitCost:       ptr(types.Int(cost)),
	})
	require.NoError(t, err)
}

func TestSubmit_WithinBudgetConfirmAndSend(t *testing.T) {
	backend := &prBackend{}
	f := newPR(t, backend, 1_000_000)
	addCostRow(t, f, 3, 50000)

	orch := New[purchase.Payload](&stubRefresher{}, 5)
	var completed []forms.Receipt
	orch.OnSuccess(func(_ context.Context, r forms.Receipt) error {
		completed = append(completed, r)
		return nil
	})

	out, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateConfirming, out.State)
	assert.Nil(t, out.Budget)
	require.Empty(t, backend.calls)

	out, err = orch.Confirm(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateSuccess, out.State)
	require.Len(t, backend.calls, 1)
	assert.Equal(t, "emp-1", backend.calls[0].RequesterID)
	assert.Equal(t, "150000", backend.calls[0].Items[0].LineTotal.String())
	require.Len(t, completed, 1)
	assert.Equal(t, "PR/001", completed[0].Number)

	// terminal
	_, err = f.AddItem(context.Background(), purchase.ItemPatch{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, "pr-1", f.View(context.Background()).Receipt.ID)
}

func TestSubmit_OverBudgetNeedsOverride(t *testing.T) {
	backend := &prBackend{}
	f := newPR(t, backend, 1_000_000)
	_, err := f.UpdateHeader(context.Background(), purchase.HeaderPatch{
		WorkOrderID: ptr("spk-1"), ParentRequestID: ptr("parent-1"),
	})
	require.NoError(t, err)
	addCostRow(t, f, 12, 100000)

	orch := New[purchase.Payload](nil, 5)
	out, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateConfirmOverride, out.State)
	require.NotNil(t, out.Budget)
	assert.True(t, out.Budget.Exceeded)
	assert.Equal(t, "200000", out.Budget.Deficit.String())
	assert.Equal(t, apperror.CodeBudgetExceeded, out.Code)

	out, err = orch.Cancel(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateEditing, out.State)
	assert.Empty(t, backend.calls)

	_, err = orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	out, err = orch.Confirm(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateSuccess, out.State)
	require.Len(t, backend.calls, 1)
	require.NotNil(t, backend.calls[0].ParentRequestID)
	assert.Equal(t, "parent-1", *backend.calls[0].ParentRequestID)
}

func TestSubmit_WithinLinkedBudgetStillConfirms(t *testing.T) {
	f := newPR(t, &prBackend{}, 1_000_000)
	_, err := f.UpdateHeader(context.Background(), purchase.HeaderPatch{
		WorkOrderID: ptr("spk-1"), ParentRequestID: ptr("parent-1"),
	})
	require.NoError(t, err)
	addCostRow(t, f, 9, 100000)

	out, err := New[purchase.Payload](nil, 5).RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateConfirming, out.State)
	require.NotNil(t, out.Budget)
	assert.False(t, out.Budget.Exceeded)
}

func TestSubmit_ParentLoadedAfterSelectionIsGuarded(t *testing.T) {
	cat := &prCatalog{products: catalog.NewCache[catalog.Product](), parents: map[string]catalog.ParentRequest{}}
	backend := &prBackend{}
	f := purchase.New(userCtx(), purchase.Deps{Catalog: cat, Backend: backend}, "emp-1")
	t.Cleanup(f.Close)
	_, err := f.UpdateHeader(context.Background(), purchase.HeaderPatch{
		WorkOrderID: ptr("spk-1"), ParentRequestID: ptr("parent-1"),
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		addCostRow(t, f, 4, 100000)
	}

	orch := New[purchase.Payload](nil, 5)
	out, err := orch.RequestSubmit(userCtx(), f)
	assert.True(t, apperror.HasCode(err, apperror.CodeBudgetUnavailable))
	assert.Equal(t, forms.StateEditing, out.State)
	assert.Equal(t, apperror.CodeBudgetUnavailable, out.Code)
	require.NotNil(t, out.Budget)
	assert.True(t, out.Budget.Unavailable)
	_, err = orch.Confirm(userCtx(), f)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Empty(t, backend.calls)

	cat.parents["parent-1"] = catalog.ParentRequest{
		ID: "parent-1", TotalBudget: types.Int(5_000_000), RemainingBudget: types.Int(1_000_000),
	}
	out, err = orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateConfirmOverride, out.State)
	assert.Equal(t, apperror.CodeBudgetExceeded, out.Code)
	require.NotNil(t, out.Budget)
	assert.False(t, out.Budget.Unavailable)
	assert.Equal(t, "200000", out.Budget.Deficit.String())
	assert.Empty(t, backend.calls)
}

func TestSubmit_AuditHookLogsOutgoingDocument(t *testing.T) {
	backend := &prBackend{}
	f := newPR(t, backend, 1_000_000)
	_, err := f.UpdateHeader(context.Background(), purchase.HeaderPatch{
		WorkOrderID: ptr("spk-1"), ParentRequestID: ptr("parent-1"),
	})
	require.NoError(t, err)
	addCostRow(t, f, 2, 100000)

	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithLogger(userCtx(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	orch := New[purchase.Payload](nil, 5)
	orch.OnBeforeSubmit(AuditPayload[purchase.Payload])
	_, err = orch.RequestSubmit(ctx, f)
	require.NoError(t, err)
	_, err = orch.Confirm(ctx, f)
	require.NoError(t, err)
	require.Len(t, backend.calls, 1)

	sent := logs.FilterMessage("sending document").All()
	require.Len(t, sent, 1)
	fields := sent[0].ContextMap()
	assert.Equal(t, "parent-1", fields["parent_id"])
	assert.Equal(t, "200000", fields["cost_total"])
	assert.Equal(t, f.ID().String(), fields["draft_id"])
	assert.Equal(t, 1, logs.FilterMessage("document submitted").Len())
}

func TestSubmit_InvalidReturnsToEditing(t *testing.T) {
	backend := &prBackend{}
	f := newPR(t, backend, 0)
	orch := New[purchase.Payload](nil, 5)

	out, err := orch.RequestSubmit(userCtx(), f)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, forms.StateEditing, out.State)
	assert.True(t, out.Errors.Has("items"))
	assert.NotEmpty(t, out.Summary)

	v := f.View(context.Background())
	assert.Contains(t, v.Errors, "items")

	// still editable
	addCostRow(t, f, 1, 1)
}

func TestSubmit_EditsRejectedWhileConfirming(t *testing.T) {
	f := newPR(t, &prBackend{}, 0)
	addCostRow(t, f, 1, 1)
	orch := New[purchase.Payload](nil, 5)
	_, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)

	_, err = f.AddItem(context.Background(), purchase.ItemPatch{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	_, err = orch.RequestSubmit(userCtx(), f)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestSubmit_BackendFailureKeepsDraft(t *testing.T) {
	backend := &prBackend{err: apperror.NewUpstream(400, "Nomor PR sudah dipakai")}
	f := newPR(t, backend, 0)
	addCostRow(t, f, 2, 500)
	orch := New[purchase.Payload](nil, 5)

	_, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	out, err := orch.Confirm(userCtx(), f)
	require.Error(t, err)
	assert.Equal(t, forms.StateEditing, out.State)
	assert.Equal(t, "Nomor PR sudah dipakai", out.Summary)

	v := f.View(context.Background())
	require.Len(t, v.Items, 1)
	assert.Equal(t, "1000", v.Totals.GrandTotal.String())
	assert.Equal(t, "Nomor PR sudah dipakai", v.Notices[len(v.Notices)-1].Message)
	assert.Len(t, backend.calls, 1)

	// retry is a new explicit action
	backend.err = nil
	_, err = orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	out, err = orch.Confirm(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, forms.StateSuccess, out.State)
	assert.Len(t, backend.calls, 2)
}

func TestSubmit_RefreshFailureAbortsBeforeSend(t *testing.T) {
	backend := &prBackend{}
	f := newPR(t, backend, 0)
	addCostRow(t, f, 1, 1)
	ref := &stubRefresher{err: apperror.NewUnauthorized("session expired")}
	orch := New[purchase.Payload](ref, 5)

	_, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	out, err := orch.Confirm(userCtx(), f)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	assert.Equal(t, forms.StateEditing, out.State)
	assert.Empty(t, backend.calls)
	assert.Equal(t, 1, ref.calls)
}

func TestSubmit_RefreshedTokenReachesSend(t *testing.T) {
	f := newPR(t, &prBackend{}, 0)
	addCostRow(t, f, 1, 1)
	orch := New[purchase.Payload](&stubRefresher{token: "fresh"}, 5)

	var seen string
	orch.OnBeforeSubmit(func(ctx context.Context, _ purchase.Payload) error {
		seen = appctx.GetToken(ctx)
		return nil
	})
	_, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	_, err = orch.Confirm(userCtx(), f)
	require.NoError(t, err)
	assert.Equal(t, "fresh", seen)
}

func TestSubmit_BeforeHookErrorAborts(t *testing.T) {
	backend := &prBackend{}
	f := newPR(t, backend, 0)
	addCostRow(t, f, 1, 1)
	orch := New[purchase.Payload](nil, 5)
	orch.OnBeforeSubmit(func(context.Context, purchase.Payload) error {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "period closed")
	})

	_, err := orch.RequestSubmit(userCtx(), f)
	require.NoError(t, err)
	out, err := orch.Confirm(userCtx(), f)
	require.Error(t, err)
	assert.Equal(t, forms.StateEditing, out.State)
	assert.Empty(t, backend.calls)
}

func TestConfirmAndCancel_RequirePendingPrompt(t *testing.T) {
	f := newPR(t, &prBackend{}, 0)
	orch := New[purchase.Payload](nil, 5)

	_, err := orch.Confirm(userCtx(), f)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	_, err = orch.Cancel(userCtx(), f)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

// identityDoc is a valid document whose requester never resolves.
type identityDoc struct {
	draft *forms.Draft
	sent  int
}

func (d *identityDoc) Draft() *forms.Draft                             { return d.draft }
func (d *identityDoc) Validate(context.Context) forms.Errors           { return nil }
func (d *identityDoc) CheckBudget(context.Context) forms.BudgetCheck { return forms.BudgetCheck{} }
func (d *identityDoc) Identity(context.Context) ([]string, bool) {
	return []string{"", ""}, true
}
func (d *identityDoc) Payload(string) string { return "payload" }
func (d *identityDoc) Send(context.Context, string) (forms.Receipt, error) {
	d.sent++
	return forms.Receipt{}, nil
}

func TestConfirm_MissingIdentityAbortsBeforeNetwork(t *testing.T) {
	doc := &identityDoc{draft: forms.NewDraft(context.Background(), forms.KindPurchaseRequest)}
	ref := &stubRefresher{}
	orch := New[string](ref, 5)

	_, err := orch.RequestSubmit(context.Background(), doc)
	require.NoError(t, err)
	out, err := orch.Confirm(context.Background(), doc)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingIdentity))
	assert.Equal(t, forms.StateEditing, out.State)
	assert.Equal(t, 0, doc.sent)
	assert.Equal(t, 0, ref.calls)

	history := doc.draft.Workflow().History()
	require.NotEmpty(t, history)
	assert.Equal(t, forms.StateFailure, history[len(history)-2].To)
}

func TestSubmit_SummaryLimit(t *testing.T) {
	f := newPR(t, &prBackend{}, 0)
	for i := 0; i < 4; i++ {
		_, err := f.AddItem(context.Background(), purchase.ItemPatch{Quantity: ptr(types.Zero())})
		require.NoError(t, err)
	}
	_, err := f.UpdateHeader(context.Background(), purchase.HeaderPatch{Date: ptr(time.Time{})})
	require.NoError(t, err)

	out, err := New[purchase.Payload](nil, 2).RequestSubmit(userCtx(), f)
	require.Error(t, err)
	assert.Len(t, out.Errors, 9)
	assert.Contains(t, out.Summary, "(+7 more)")
}
