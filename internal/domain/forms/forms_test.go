package forms

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
)

type testRow struct {
	key  id.ID
	name string
}

func (r testRow) RowKey() id.ID { return r.key }

func newRow(name string) testRow { return testRow{key: id.New(), name: name} }

func TestRows_OrderAndRemove(t *testing.T) {
	rows := NewRows[testRow]()
	a, b, c := newRow("a"), newRow("b"), newRow("c")
	require.NoError(t, rows.Add(a))
	require.NoError(t, rows.Add(b))
	require.NoError(t, rows.Add(c))

	assert.Equal(t, 3, rows.Len())
	assert.Equal(t, 1, rows.Index(b.key))

	require.NoError(t, rows.Remove(b.key))
	assert.Equal(t, []id.ID{a.key, c.key}, rows.Keys())
	assert.Equal(t, -1, rows.Index(b.key))
	assert.Equal(t, 1, rows.Index(c.key))

	err := rows.Remove(b.key)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRows_DuplicateKey(t *testing.T) {
	rows := NewRows[testRow]()
	a := newRow("a")
	require.NoError(t, rows.Add(a))
	assert.True(t, apperror.HasCode(rows.Add(a), apperror.CodeConflict))
	assert.Error(t, rows.Add(testRow{}))
}

func TestRows_UIStateFollowsKeyAcrossRemoval(t *testing.T) {
	rows := NewRows[testRow]()
	a, b := newRow("a"), newRow("b")
	require.NoError(t, rows.Add(a))
	require.NoError(t, rows.Add(b))
	require.NoError(t, rows.SetUI(b.key, RowUI{PickerOpen: true, Query: "bolt"}))

	require.NoError(t, rows.Remove(a.key))

	// b moved to index 0 but keeps its own state
	assert.Equal(t, RowUI{PickerOpen: true, Query: "bolt"}, rows.UI(b.key))

	require.NoError(t, rows.Remove(b.key))
	assert.Equal(t, RowUI{}, rows.UI(b.key))
	assert.Error(t, rows.SetUI(b.key, RowUI{PickerOpen: true}))
}

func TestRows_Update(t *testing.T) {
	rows := NewRows[testRow]()
	a := newRow("a")
	require.NoError(t, rows.Add(a))

	got, err := rows.Update(a.key, func(r testRow) (testRow, error) {
		r.name = "renamed"
		return r, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.name)

	_, err = rows.Update(a.key, func(r testRow) (testRow, error) {
		r.name = "lost"
		return r, apperror.NewValidation("nope")
	})
	require.Error(t, err)
	stored, _ := rows.Get(a.key)
	assert.Equal(t, "renamed", stored.name)
}

func TestErrors_AddKeepsFirstPerField(t *testing.T) {
	var errs Errors
	errs.Add("date", "Date is required")
	errs.Add("date", "ignored")
	errs.Addf(ItemField(0, "quantity"), "Row %d: quantity must be greater than zero", 1)

	require.Len(t, errs, 2)
	assert.Equal(t, "Date is required", errs.Map()["date"])
	assert.True(t, errs.Has("items[0].quantity"))
	assert.False(t, errs.Empty())
}

func TestErrors_Summary(t *testing.T) {
	var errs Errors
	for i := 0; i < 7; i++ {
		errs.Addf(ItemField(i, "unit"), "e%d", i)
	}
	assert.Equal(t, "e0; e1; e2; e3; e4 (+2 more)", errs.Summary(5))
	assert.Equal(t, "e0; e1; e2; e3; e4; e5; e6", errs.Summary(10))
	assert.Equal(t, "", Errors{}.Summary(5))

	appErr := errs.AppError(5)
	require.NotNil(t, appErr)
	assert.Equal(t, 422, appErr.HTTPStatus)
	assert.Nil(t, Errors{}.AppError(5))
}

func TestWorkflow_HappyPath(t *testing.T) {
	w := NewWorkflow()
	require.NoError(t, w.Through(StateValidating, StateValid, StateBudgetCheck, StateWithinBudget, StateConfirming))
	assert.True(t, w.AwaitingConfirmation())
	require.NoError(t, w.Through(StateSubmitting, StateSuccess))
	assert.True(t, w.Terminal())
	assert.Len(t, w.History(), 7)
}

func TestWorkflow_RejectsSkips(t *testing.T) {
	w := NewWorkflow()
	err := w.To(StateSubmitting)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, StateEditing, w.State())

	require.NoError(t, w.Through(StateValidating, StateValid, StateBudgetCheck, StateOverBudget, StateConfirmOverride))
	assert.Error(t, w.RequireEditing("edit"))
	require.NoError(t, w.To(StateEditing))
	assert.NoError(t, w.RequireEditing("edit"))
}

func TestWorkflow_SuccessIsTerminal(t *testing.T) {
	w := NewWorkflow()
	require.NoError(t, w.Through(StateValidating, StateValid, StateBudgetCheck, StateWithinBudget,
		StateConfirming, StateSubmitting, StateSuccess))
	assert.Error(t, w.To(StateEditing))
}

func TestTracker_LatestTicketWins(t *testing.T) {
	tr := NewTracker()
	row := id.New()

	first := tr.Issue(row, "p1")
	second := tr.Issue(row, "p2")
	assert.False(t, tr.Current(first))
	assert.True(t, tr.Current(second))

	tr.Invalidate(row)
	assert.False(t, tr.Current(second))

	other := tr.Issue(id.New(), "p1")
	assert.True(t, tr.Current(other))
}

func TestTracker_Wait(t *testing.T) {
	tr := NewTracker()
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		tr.Go(func() { n.Add(1) })
	}
	tr.Wait()
	assert.Equal(t, int32(5), n.Load())
}

func TestHooks_StopAtFirstError(t *testing.T) {
	h := NewHooks[string]()
	var calls []string
	h.On(BeforeSubmit, func(_ context.Context, v string) error {
		calls = append(calls, "first:"+v)
		return apperror.NewValidation("stop")
	})
	h.On(BeforeSubmit, func(_ context.Context, v string) error {
		calls = append(calls, "second:"+v)
		return nil
	})

	err := h.Run(context.Background(), BeforeSubmit, "x")
	assert.Error(t, err)
	assert.Equal(t, []string{"first:x"}, calls)
	assert.NoError(t, h.Run(context.Background(), AfterSubmit, "x"))
	assert.Equal(t, 2, h.Len(BeforeSubmit))
}

func TestDraft_CloseCancelsContext(t *testing.T) {
	reqCtx, cancel := context.WithCancel(appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1"}))
	d := NewDraft(reqCtx, KindPurchaseRequest)
	cancel()

	// request cancellation does not end the draft
	assert.False(t, d.Closed())
	assert.Equal(t, "u-1", d.Owner)
	assert.Equal(t, "u-1", appctx.GetUserID(d.Context()))

	d.Close()
	d.Close()
	assert.True(t, d.Closed())
}

func TestResolveRequester(t *testing.T) {
	got, ok := ResolveRequester("", "  ", "emp-7", "user-1")
	assert.True(t, ok)
	assert.Equal(t, "emp-7", got)

	_, ok = ResolveRequester("", "")
	assert.False(t, ok)
}

func userCtx(token string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1", Token: token})
}

func TestEnrich_UsesTriggeringRequestCredential(t *testing.T) {
	d := NewDraft(userCtx("token-at-open"), KindPurchaseRequest)
	t.Cleanup(d.Close)

	reqCtx, cancel := context.WithCancel(userCtx("token-now"))
	tk := d.Enrichment().Issue(id.New(), "p1")
	var seen string
	var applied bool
	Enrich(reqCtx, d, tk, time.Second,
		func(ctx context.Context) (string, error) {
			cancel() // the request ending must not cancel the lookup
			return appctx.GetToken(ctx), ctx.Err()
		},
		func(token string, err error) {
			applied = true
			seen = token
			assert.NoError(t, err)
		})
	d.WaitEnrichment()

	assert.True(t, applied)
	assert.Equal(t, "token-now", seen)
}

func TestEnrich_DiscardCancelsLookup(t *testing.T) {
	d := NewDraft(userCtx("tok"), KindStockOpname)
	tk := d.Enrichment().Issue(id.New(), "p1")
	started := make(chan struct{})
	var fetchErr atomic.Value
	Enrich(userCtx("tok"), d, tk, 0,
		func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			fetchErr.Store(ctx.Err())
			return 0, ctx.Err()
		},
		func(int, error) { t.Error("apply must not run after discard") })

	<-started
	d.Close()
	d.WaitEnrichment()
	assert.True(t, errors.Is(fetchErr.Load().(error), context.Canceled))
}
