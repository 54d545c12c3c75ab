package Budget

import (
	"fmt"
	"time"
)

// Store is the persistence contract for per-(manager, day) budget counters.
// Reserve must be an atomic check-and-decrement so two concurrent approvals
// can never jointly overspend the daily cap.
type Store interface {
	GetRemaining(managerID uint, day string) (int, error)
	Reserve(managerID uint, day string, magnitude int) error
	Release(managerID uint, day string, magnitude int) error
	ResetAll(day string) error
}

// ExceededError is returned when a reservation would overdraw the manager's
// remaining daily allowance. The counter is left untouched.
type ExceededError struct {
	ManagerID uint
	Day       string
	Requested int
	Remaining int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded for manager %d on %s: requested %d, remaining %d",
		e.ManagerID, e.Day, e.Requested, e.Remaining)
}

// Day formats a timestamp as the local calendar day budgets are keyed by.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}

// Guard is the single gate for every discretionary point action in the
// system. Points settlement, disciplinary deductions and issue adjustments
// all funnel through the same reserve primitive, so the daily cap holds per
// manager globally rather than per feature.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// CheckAndReserve consumes abs(adjustment) from the manager's remaining
// allowance for the given day. A zero magnitude is a no-op success.
func (g *Guard) CheckAndReserve(managerID uint, day string, magnitude int) error {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude == 0 {
		return nil
	}
	return g.store.Reserve(managerID, day, magnitude)
}

// Release backs out a reservation that could not be committed, e.g. when an
// approval loses the task-version race to a concurrent approver.
func (g *Guard) Release(managerID uint, day string, magnitude int) error {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude == 0 {
		return nil
	}
	return g.store.Release(managerID, day, magnitude)
}

func (g *Guard) Remaining(managerID uint, day string) (int, error) {
	return g.store.GetRemaining(managerID, day)
}

// ResetAll restores every manager's allowance for the given day. Invoked once
// per calendar day by the scheduler; managers without a row are unaffected
// and get the default lazily on first use.
func (g *Guard) ResetAll(day string) error {
	return g.store.ResetAll(day)
}
