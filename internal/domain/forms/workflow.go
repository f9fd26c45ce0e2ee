package forms

import (
	"time"

	"formdesk/internal/core/apperror"
)

// State is a submission workflow state.
type State string

const (
	StateEditing         State = "EDITING"
	StateValidating      State = "VALIDATING"
	StateInvalid         State = "INVALID"
	StateValid           State = "VALID"
	StateBudgetCheck     State = "BUDGET_CHECK"
	StateOverBudget      State = "OVER_BUDGET"
	StateConfirmOverride State = "CONFIRM_OVERRIDE"
	StateWithinBudget    State = "WITHIN_BUDGET"
	StateConfirming      State = "CONFIRMING"
	StateSubmitting      State = "SUBMITTING"
	StateSuccess         State = "SUCCESS"
	StateFailure         State = "FAILURE"
)

var transitions = map[State][]State{
	StateEditing:         {StateValidating},
	StateValidating:      {StateInvalid, StateValid},
	StateInvalid:         {StateEditing},
	StateValid:           {StateBudgetCheck},
	StateBudgetCheck:     {StateOverBudget, StateWithinBudget, StateEditing},
	StateOverBudget:      {StateConfirmOverride},
	StateWithinBudget:    {StateConfirming},
	StateConfirmOverride: {StateEditing, StateSubmitting},
	StateConfirming:      {StateEditing, StateSubmitting},
	StateSubmitting:      {StateSuccess, StateFailure},
	StateFailure:         {StateEditing},
}

// Transition is one recorded state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Workflow is the per-form submission state machine. Not safe for
// concurrent use; the owning draft serializes access.
type Workflow struct {
	state   State
	history []Transition
	now     func() time.Time
}

// NewWorkflow starts in EDITING.
func NewWorkflow() *Workflow {
	return &Workflow{state: StateEditing, now: time.Now}
}

// State returns the current state.
func (w *Workflow) State() State { return w.state }

// Terminal reports whether the form was submitted successfully.
func (w *Workflow) Terminal() bool { return w.state == StateSuccess }

// AwaitingConfirmation reports whether a confirmation prompt is pending.
func (w *Workflow) AwaitingConfirmation() bool {
	return w.state == StateConfirming || w.state == StateConfirmOverride
}

// To moves to next if the transition is allowed.
func (w *Workflow) To(next State) error {
	for _, allowed := range transitions[w.state] {
		if allowed == next {
			w.history = append(w.history, Transition{From: w.state, To: next, At: w.now().UTC()})
			w.state = next
			return nil
		}
	}
	return apperror.NewInvalidState(string(w.state), "move to "+string(next))
}

// Through applies each transition in order and stops at the first refusal.
func (w *Workflow) Through(states ...State) error {
	for _, s := range states {
		if err := w.To(s); err != nil {
			return err
		}
	}
	return nil
}

// RequireEditing returns INVALID_STATE unless the form accepts edits.
func (w *Workflow) RequireEditing(action string) error {
	if w.state != StateEditing {
		return apperror.NewInvalidState(string(w.state), action)
	}
	return nil
}

// History returns a copy of the recorded transitions.
func (w *Workflow) History() []Transition {
	out := make([]Transition, len(w.history))
	copy(out, w.history)
	return out
}
