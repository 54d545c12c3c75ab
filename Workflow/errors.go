package Workflow

import "fmt"

// ValidationError reports malformed input caught at the engine boundary. The
// engine never trusts caller-side validation, so these fire even for input a
// UI already checked.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateTransitionError reports an operation that is illegal for the task's
// current status. The machine never silently no-ops.
type StateTransitionError struct {
	TaskID    uint
	Operation string
	Status    string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("task %d: cannot %s while %s", e.TaskID, e.Operation, e.Status)
}

// NotAuthorizedError reports an actor lacking the role or relationship an
// operation requires.
type NotAuthorizedError struct {
	ActorID uint
	Action  string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("user %d may not %s this task", e.ActorID, e.Action)
}

// NotFoundError reports a missing task or user.
type NotFoundError struct {
	Kind string
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ConcurrentModificationError reports an optimistic-lock version mismatch.
// Safe for the caller to retry once after re-reading.
type ConcurrentModificationError struct {
	TaskID uint
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("task %d was modified concurrently", e.TaskID)
}

// TransientError wraps store or ledger failures that are eligible for retry
// with backoff at the adapter layer.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
