package forms

import (
	"context"
	"sync"
	"time"

	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
	"formdesk/pkg/logger"
)

// Ticket tags one asynchronous row enrichment request.
type Ticket struct {
	Row    id.ID
	Target string
	Seq    uint64
}

// Tracker issues per-row monotonic tickets for enrichment lookups and
// tracks the goroutines running them. A response is applied only when its
// ticket is still the latest issued for the row.
type Tracker struct {
	mu     sync.Mutex
	latest map[id.ID]uint64
	wg     sync.WaitGroup
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[id.ID]uint64)}
}

// Issue returns a new ticket for row, superseding any earlier one.
func (t *Tracker) Issue(row id.ID, target string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[row]++
	return Ticket{Row: row, Target: target, Seq: t.latest[row]}
}

// Invalidate supersedes any pending ticket for row without issuing a new one.
func (t *Tracker) Invalidate(row id.ID) {
	t.mu.Lock()
	t.latest[row]++
	t.mu.Unlock()
}

// Current reports whether tk is the latest ticket of its row.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[tk.Row] == tk.Seq
}

// Forget drops the row's sequence; any pending ticket becomes stale.
func (t *Tracker) Forget(row id.ID) {
	t.mu.Lock()
	delete(t.latest, row)
	t.mu.Unlock()
}

// Go runs fn in a tracked goroutine.
func (t *Tracker) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until every tracked goroutine has returned.
func (t *Tracker) Wait() { t.wg.Wait() }

// Enrich runs fetch in the background, bounded by timeout, then calls apply
// with the draft locked. The lookup carries the user and trace of reqCtx,
// the request that triggered it, and is cancelled with the draft rather
// than with that request. apply is skipped when the draft was discarded or
// tk was superseded meanwhile; it must still check that the row exists and
// targets tk.Target.
func Enrich[T any](reqCtx context.Context, d *Draft, tk Ticket, timeout time.Duration, fetch func(context.Context) (T, error), apply func(T, error)) {
	ctx, cancel := d.lookupContext(reqCtx)
	d.enrich.Go(func() {
		defer cancel()
		if timeout > 0 {
			var stop context.CancelFunc
			ctx, stop = context.WithTimeout(ctx, timeout)
			defer stop()
		}
		res, err := fetch(ctx)

		d.Lock()
		defer d.Unlock()
		if d.Closed() || !d.enrich.Current(tk) {
			logger.Debug(ctx, "stale enrichment dropped", "row", tk.Row, "target", tk.Target)
			return
		}
		apply(res, err)
	})
}

// lookupContext detaches reqCtx and ties it to the draft lifetime.
func (d *Draft) lookupContext(reqCtx context.Context) (context.Context, context.CancelFunc) {
	if reqCtx == nil {
		reqCtx = d.ctx
	}
	base := logger.WithFields(appctx.Detach(reqCtx), "draft_id", d.ID, "kind", d.Kind)
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(d.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
