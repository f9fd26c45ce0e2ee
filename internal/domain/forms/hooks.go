package forms

import "context"

// HookEvent represents a submission lifecycle point.
type HookEvent string

const (
	BeforeSubmit HookEvent = "before_submit"
	AfterSubmit  HookEvent = "after_submit"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, value T) error

// Hooks stores lifecycle hooks for one value type.
type Hooks[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHooks creates an empty hook registry.
func NewHooks[T any]() *Hooks[T] {
	return &Hooks[T]{hooks: make(map[HookEvent][]Hook[T])}
}

// On registers a hook for the specified event.
func (h *Hooks[T]) On(event HookEvent, hook Hook[T]) {
	h.hooks[event] = append(h.hooks[event], hook)
}

// Run executes all hooks for event and stops at the first error.
func (h *Hooks[T]) Run(ctx context.Context, event HookEvent, value T) error {
	for _, hook := range h.hooks[event] {
		if err := hook(ctx, value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of hooks registered for event.
func (h *Hooks[T]) Len(event HookEvent) int {
	return len(h.hooks[event])
}
