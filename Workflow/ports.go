package Workflow

import (
	"time"

	"github.com/wenjyue84/MakanManager-sub001/Models"
)

// TaskStore is the narrow persistence contract the machine runs against.
// Update must reject with Models.ErrStaleVersion on a version mismatch.
type TaskStore interface {
	GetByID(id uint) (*Models.Task, error)
	ListByStatus(status string) ([]Models.Task, error)
	ListByAssignee(userID uint) ([]Models.Task, error)
	ListByStation(station string) ([]Models.Task, error)
	ListDueBefore(now time.Time) ([]Models.Task, error)
	Create(task *Models.Task) error
	Update(id uint, fields map[string]interface{}, expectedVersion uint) error
}

// UserLedger reads users and credits point totals. CreditPoints must update
// the weekly, monthly and lifetime accumulators atomically.
type UserLedger interface {
	GetByID(id uint) (*Models.User, error)
	CreditPoints(userID uint, delta int) error
}

// Settler commits an approval's task update and ledger credit as one unit.
// Either both apply or neither does; a version mismatch surfaces as
// Models.ErrStaleVersion.
type Settler interface {
	Settle(taskID uint, fields map[string]interface{}, expectedVersion uint, assigneeID uint, points int) error
}

// EventLog is the append-only audit trail, written on every successful
// transition.
type EventLog interface {
	Append(taskID, actorID uint, eventType string, metadata map[string]interface{}) error
}

// Notifier receives one logical event per transition. Formatting and delivery
// of user-facing alerts belong to the implementation, not the engine.
type Notifier interface {
	TaskEvent(event string, task *Models.Task, actorID uint)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }
