package forms

import (
	"context"
	"strings"
	"sync"
	"time"

	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
	"formdesk/internal/core/notice"
	"formdesk/internal/core/types"
)

// Kind names a document form.
type Kind string

const (
	KindPurchaseRequest Kind = "purchase-request"
	KindSalesOrder      Kind = "sales-order"
	KindStockOpname     Kind = "stock-opname"
)

// BudgetCheck is the result of the budget guard.
type BudgetCheck struct {
	Applies   bool        `json:"applies"`
	Exceeded  bool        `json:"exceeded"`
	Remaining types.Money `json:"remainingBudget"`
	CostTotal types.Money `json:"costCategoryTotal"`
	Deficit   types.Money `json:"deficit"`
	Projected types.Money `json:"projectedRemaining"`
	// Unavailable is set when the guard applies but the parent's remaining
	// budget is not known, so the result cannot be trusted.
	Unavailable bool `json:"unavailable,omitempty"`
}

// Receipt is the backend's acknowledgement of a saved document.
type Receipt struct {
	ID      string `json:"id"`
	Number  string `json:"number,omitempty"`
	Message string `json:"message,omitempty"`
}

// Draft is the state every document form shares: the lock that serializes
// edits, the workflow, the notices and the last validation result. Its
// context lives until the draft is discarded and parents every background
// lookup the draft starts.
type Draft struct {
	ID    id.ID
	Kind  Kind
	Owner string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	flow    *Workflow
	notices *notice.Log
	errs    Errors
	enrich  *Tracker
	receipt *Receipt

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDraft creates a draft owned by the user in ctx. The draft context keeps
// the trace and user of ctx but not its cancellation.
func NewDraft(ctx context.Context, kind Kind) *Draft {
	dctx, cancel := context.WithCancel(appctx.Detach(ctx))
	now := time.Now().UTC()
	return &Draft{
		ID:        id.New(),
		Kind:      kind,
		Owner:     appctx.GetUserID(ctx),
		ctx:       dctx,
		cancel:    cancel,
		flow:      NewWorkflow(),
		notices:   notice.NewLog(50),
		enrich:    NewTracker(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Lock acquires the draft lock.
func (d *Draft) Lock() { d.mu.Lock() }

// Unlock releases the draft lock.
func (d *Draft) Unlock() { d.mu.Unlock() }

// Context returns the draft lifetime context.
func (d *Draft) Context() context.Context { return d.ctx }

// Workflow returns the state machine. Callers hold the lock.
func (d *Draft) Workflow() *Workflow { return d.flow }

// Enrichment returns the row enrichment tracker.
func (d *Draft) Enrichment() *Tracker { return d.enrich }

// Notify records a notice. Callers hold the lock.
func (d *Draft) Notify(n notice.Notice) { d.notices.Add(n) }

// Notices returns recorded notices. Callers hold the lock.
func (d *Draft) Notices() []notice.Notice { return d.notices.Items() }

// SetErrors stores the last validation result. Callers hold the lock.
func (d *Draft) SetErrors(errs Errors) { d.errs = errs }

// Errors returns the last validation result. Callers hold the lock.
func (d *Draft) Errors() Errors { return d.errs }

// SetReceipt stores the backend acknowledgement. Callers hold the lock.
func (d *Draft) SetReceipt(r Receipt) { d.receipt = &r }

// Receipt returns the acknowledgement of a successful submit, if any.
func (d *Draft) Receipt() *Receipt { return d.receipt }

// Touch bumps UpdatedAt. Callers hold the lock.
func (d *Draft) Touch() { d.UpdatedAt = time.Now().UTC() }

// Close cancels pending lookups. Safe to call more than once.
func (d *Draft) Close() { d.cancel() }

// Closed reports whether the draft was discarded.
func (d *Draft) Closed() bool { return d.ctx.Err() != nil }

// WaitEnrichment blocks until every background lookup has returned.
func (d *Draft) WaitEnrichment() { d.enrich.Wait() }

// ResolveRequester returns the first non-blank candidate, in order of
// precedence: explicit selection, current employee, authenticated user.
func ResolveRequester(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c, true
		}
	}
	return "", false
}
