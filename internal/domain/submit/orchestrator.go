// Package submit drives a document form from a submit request to the
// backend call: validation, budget check, confirmation, requester
// resolution, credential refresh and the single send attempt.
package submit

import (
	"context"

	"formdesk/internal/core/apperror"
	"formdesk/internal/core/notice"
	"formdesk/internal/domain/forms"
	"formdesk/pkg/logger"
)

// Document is a form the orchestrator can submit. Validate, CheckBudget,
// Identity and Payload are called with the draft lock held; Send is not.
type Document[P any] interface {
	Draft() *forms.Draft
	Validate(ctx context.Context) forms.Errors
	CheckBudget(ctx context.Context) forms.BudgetCheck
	// Identity returns the requester candidates in precedence order and
	// whether the document needs a requester at all.
	Identity(ctx context.Context) (candidates []string, required bool)
	Payload(requesterID string) P
	Send(ctx context.Context, payload P) (forms.Receipt, error)
}

// Refresher makes sure the credential in ctx is fresh before a
// state-mutating backend call. It returns the context to use for the call.
type Refresher interface {
	Ensure(ctx context.Context) (context.Context, error)
}

// Outcome is the result of a workflow step.
type Outcome struct {
	State   forms.State        `json:"state"`
	Errors  forms.Errors       `json:"errors,omitempty"`
	Summary string             `json:"summary,omitempty"`
	Code    string             `json:"code,omitempty"`
	Budget  *forms.BudgetCheck `json:"budget,omitempty"`
	Receipt *forms.Receipt     `json:"receipt,omitempty"`
}

// Orchestrator runs the submission workflow for documents with payload P.
type Orchestrator[P any] struct {
	refresher    Refresher
	summaryLimit int
	before       *forms.Hooks[P]
	after        *forms.Hooks[forms.Receipt]
}

// New creates an orchestrator. refresher may be nil.
func New[P any](refresher Refresher, summaryLimit int) *Orchestrator[P] {
	if summaryLimit <= 0 {
		summaryLimit = forms.DefaultSummaryLimit
	}
	return &Orchestrator[P]{
		refresher:    refresher,
		summaryLimit: summaryLimit,
		before:       forms.NewHooks[P](),
		after:        forms.NewHooks[forms.Receipt](),
	}
}

// OnBeforeSubmit registers a hook that sees the payload before it is sent.
// A hook error aborts the send.
func (o *Orchestrator[P]) OnBeforeSubmit(h forms.Hook[P]) {
	o.before.On(forms.BeforeSubmit, h)
}

// Auditable is a payload that can describe itself in a log line.
type Auditable interface {
	LogFields() []any
}

// AuditPayload is a before-submit hook that logs the outgoing document.
func AuditPayload[P Auditable](ctx context.Context, p P) error {
	logger.Info(ctx, "sending document", p.LogFields()...)
	return nil
}

// OnSuccess registers a completion callback. Its errors are logged only.
func (o *Orchestrator[P]) OnSuccess(h forms.Hook[forms.Receipt]) {
	o.after.On(forms.AfterSubmit, h)
}

// RequestSubmit validates the document and checks the budget. A valid
// document ends up awaiting confirmation; an invalid one returns to EDITING
// with the field errors.
func (o *Orchestrator[P]) RequestSubmit(ctx context.Context, doc Document[P]) (Outcome, error) {
	d := doc.Draft()
	ctx = logger.WithFields(ctx, "draft_id", d.ID, "kind", d.Kind)
	d.Lock()
	defer d.Unlock()

	flow := d.Workflow()
	if err := flow.RequireEditing("submit"); err != nil {
		return Outcome{State: flow.State()}, err
	}
	if err := flow.To(forms.StateValidating); err != nil {
		return Outcome{State: flow.State()}, err
	}

	errs := doc.Validate(ctx)
	d.SetErrors(errs)
	d.Touch()

	if !errs.Empty() {
		summary := errs.Summary(o.summaryLimit)
		_ = flow.Through(forms.StateInvalid, forms.StateEditing)
		d.Notify(notice.New(notice.LevelError, summary))
		logger.Debug(ctx, "submit rejected by validation", "errors", len(errs))
		return Outcome{State: flow.State(), Errors: errs, Summary: summary}, errs.AppError(o.summaryLimit)
	}

	_ = flow.Through(forms.StateValid, forms.StateBudgetCheck)
	check := doc.CheckBudget(ctx)
	out := Outcome{}
	if check.Applies {
		out.Budget = &check
	}

	switch {
	case check.Unavailable:
		err := apperror.NewBudgetUnavailable()
		_ = flow.To(forms.StateEditing)
		d.Notify(notice.New(notice.LevelError, err.Message))
		logger.Warn(ctx, "submit blocked, parent budget unknown")
		out.State = flow.State()
		out.Code = err.Code
		return out, err
	case check.Exceeded:
		_ = flow.Through(forms.StateOverBudget, forms.StateConfirmOverride)
		d.Notify(notice.Warning("Cost total exceeds the remaining budget of the parent request"))
		out.Code = apperror.CodeBudgetExceeded
	default:
		_ = flow.Through(forms.StateWithinBudget, forms.StateConfirming)
	}
	out.State = flow.State()
	return out, nil
}

// Confirm sends the document after a confirmation or budget override.
// Failure returns the form to EDITING with the draft untouched.
func (o *Orchestrator[P]) Confirm(ctx context.Context, doc Document[P]) (Outcome, error) {
	d := doc.Draft()
	ctx = logger.WithFields(ctx, "draft_id", d.ID, "kind", d.Kind)
	d.Lock()
	flow := d.Workflow()
	if !flow.AwaitingConfirmation() {
		state := flow.State()
		d.Unlock()
		return Outcome{State: state}, apperror.NewInvalidState(string(state), "confirm")
	}
	overridden := flow.State() == forms.StateConfirmOverride
	_ = flow.To(forms.StateSubmitting)

	var requester string
	if candidates, required := doc.Identity(ctx); required {
		r, ok := forms.ResolveRequester(candidates...)
		if !ok {
			err := apperror.NewMissingIdentity()
			out := o.fail(ctx, d, err)
			d.Unlock()
			return out, err
		}
		requester = r
	}
	var check forms.BudgetCheck
	if overridden {
		check = doc.CheckBudget(ctx)
	}
	payload := doc.Payload(requester)
	d.Unlock()

	if overridden {
		logger.Info(ctx, "submitting over budget",
			"deficit", check.Deficit.String(), "remaining", check.Remaining.String())
	}

	callCtx, err := o.ensureCredential(ctx)
	if err == nil {
		err = o.before.Run(callCtx, forms.BeforeSubmit, payload)
	}
	var receipt forms.Receipt
	if err == nil {
		receipt, err = doc.Send(callCtx, payload)
	}

	d.Lock()
	if err != nil {
		out := o.fail(ctx, d, err)
		d.Unlock()
		return out, err
	}
	_ = flow.To(forms.StateSuccess)
	d.SetReceipt(receipt)
	d.Touch()
	d.Notify(notice.New(notice.LevelSuccess, successMessage(receipt)))
	d.Unlock()

	logger.Info(ctx, "document submitted", "document_id", receipt.ID)
	if err := o.after.Run(callCtx, forms.AfterSubmit, receipt); err != nil {
		logger.Warn(ctx, "completion callback failed", "error", err)
	}
	return Outcome{State: forms.StateSuccess, Receipt: &receipt}, nil
}

// Cancel dismisses a pending confirmation.
func (o *Orchestrator[P]) Cancel(_ context.Context, doc Document[P]) (Outcome, error) {
	d := doc.Draft()
	d.Lock()
	defer d.Unlock()

	flow := d.Workflow()
	if !flow.AwaitingConfirmation() {
		return Outcome{State: flow.State()}, apperror.NewInvalidState(string(flow.State()), "cancel")
	}
	_ = flow.To(forms.StateEditing)
	d.Touch()
	return Outcome{State: flow.State()}, nil
}

func (o *Orchestrator[P]) ensureCredential(ctx context.Context) (context.Context, error) {
	if o.refresher == nil {
		return ctx, nil
	}
	return o.refresher.Ensure(ctx)
}

// fail moves a SUBMITTING form through FAILURE back to EDITING. Callers hold the lock.
func (o *Orchestrator[P]) fail(ctx context.Context, d *forms.Draft, err error) Outcome {
	flow := d.Workflow()
	_ = flow.Through(forms.StateFailure, forms.StateEditing)
	d.Touch()

	msg := "Submission failed"
	if appErr, ok := apperror.AsAppError(err); ok && appErr.Code != apperror.CodeInternal {
		msg = appErr.Message
	}
	d.Notify(notice.New(notice.LevelError, msg))
	logger.Warn(ctx, "submit failed", "error", err)
	return Outcome{State: flow.State(), Summary: msg}
}

func successMessage(r forms.Receipt) string {
	if r.Message != "" {
		return r.Message
	}
	if r.Number != "" {
		return "Saved as " + r.Number
	}
	return "Saved"
}
