package Workflow

import (
	"errors"
	"log"
	"time"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
	"github.com/wenjyue84/MakanManager-sub001/Models"
)

// Logical events emitted on successful transitions, recorded in the audit
// log and fanned out to the notifier.
const (
	EventCreated   = "created"
	EventClaimed   = "claimed"
	EventSubmitted = "submitted"
	EventApproved  = "approved"
	EventRejected  = "rejected"
	EventHeld      = "held"
	EventResumed   = "resumed"
)

// legalFrom is the transition table: operation -> statuses it may start from.
// Overdue tasks keep their underlying status, so a decayed task passes the
// same checks as the state it decayed from. Anything not listed here fails
// with a StateTransitionError; the machine never silently no-ops.
var legalFrom = map[string][]string{
	ActionClaim:   {Models.StatusOpen},
	ActionSubmit:  {Models.StatusInProgress},
	ActionApprove: {Models.StatusPendingReview},
	ActionReject:  {Models.StatusPendingReview},
	ActionHold:    {Models.StatusInProgress},
	ActionResume:  {Models.StatusOnHold},
}

// Machine owns the task lifecycle: Open -> InProgress -> PendingReview ->
// Done, with InProgress <-> OnHold, reject back to InProgress, and the
// overdue overlay maintained by Sweep. Approve delegates to points
// settlement, which reserves against the budget guard before committing.
type Machine struct {
	Tasks       TaskStore
	Users       UserLedger
	Settlements Settler
	Budgets     *Budget.Guard
	Events      EventLog
	Notifier    Notifier
	Clock       Clock
	Settings    Settings
}

func NewMachine(tasks TaskStore, users UserLedger, settlements Settler, budgets *Budget.Guard, events EventLog, settings Settings) *Machine {
	return &Machine{
		Tasks:       tasks,
		Users:       users,
		Settlements: settlements,
		Budgets:     budgets,
		Events:      events,
		Clock:       SystemClock(),
		Settings:    settings,
	}
}

// Create validates and persists a new task. A task created with an assignee
// starts in progress directly (manager-assigned); otherwise it is open for
// claiming.
func (m *Machine) Create(task *Models.Task, actorID uint) (*Models.Task, error) {
	if task.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if !Models.ValidStation(task.Station) {
		return nil, &ValidationError{Field: "station", Reason: "must be kitchen, front, store or outdoor"}
	}
	if task.DueAt.IsZero() {
		return nil, &ValidationError{Field: "due_at", Reason: "required"}
	}
	if task.BasePoints < m.Settings.BasePointsMin || task.BasePoints > m.Settings.BasePointsMax {
		return nil, &ValidationError{Field: "base_points", Reason: "out of configured range"}
	}
	if task.ProofType != "" && !Models.ValidProofType(task.ProofType) {
		return nil, &ValidationError{Field: "proof_type", Reason: "must be none, photo, text or checklist"}
	}

	task.AssignerID = actorID
	task.Status = Models.StatusOpen
	task.Version = 1
	if task.AssigneeID != nil {
		if _, err := m.actor(*task.AssigneeID); err != nil {
			return nil, err
		}
		task.Status = Models.StatusInProgress
	}

	if err := m.Tasks.Create(task); err != nil {
		return nil, &TransientError{Op: "create task", Err: err}
	}
	m.record(task, actorID, EventCreated, nil)
	return task, nil
}

// Claim assigns an open task to the caller. Two concurrent claims resolve to
// exactly one winner; the loser sees a StateTransitionError.
func (m *Machine) Claim(taskID, userID uint) (*Models.Task, error) {
	task, err := m.load(taskID)
	if err != nil {
		return nil, err
	}
	actor, err := m.actor(userID)
	if err != nil {
		return nil, err
	}
	if err := m.guard(task, ActionClaim); err != nil {
		return nil, err
	}
	if task.AssigneeID != nil {
		return nil, &StateTransitionError{TaskID: task.ID, Operation: ActionClaim, Status: task.EffectiveStatus()}
	}
	if !Can(actor, ActionClaim, task) {
		return nil, &NotAuthorizedError{ActorID: userID, Action: ActionClaim}
	}

	err = m.update(task, map[string]interface{}{
		"assignee_id": userID,
		"status":      Models.StatusInProgress,
	})
	if err != nil {
		return nil, m.reclassifyRace(err, taskID, ActionClaim, Models.StatusOpen)
	}

	return m.finish(taskID, task, userID, EventClaimed, nil)
}

// Submit moves in-progress work to pending review, attaching proof. Only the
// assignee may submit, with a management override.
func (m *Machine) Submit(taskID, actorID uint, proofData map[string]interface{}) (*Models.Task, error) {
	task, err := m.load(taskID)
	if err != nil {
		return nil, err
	}
	actor, err := m.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := m.guard(task, ActionSubmit); err != nil {
		return nil, err
	}
	if !Can(actor, ActionSubmit, task) {
		return nil, &NotAuthorizedError{ActorID: actorID, Action: ActionSubmit}
	}

	fields := map[string]interface{}{
		"status":           Models.StatusPendingReview,
		"completed_at":     m.Clock.Now(),
		"rejection_reason": "",
		"overdue":          false,
		"overdue_days":     0,
	}
	if proofData != nil {
		payload, merr := Models.EncodeJSON(proofData)
		if merr != nil {
			return nil, &ValidationError{Field: "proof_data", Reason: "not serializable"}
		}
		fields["proof_data"] = payload
	}

	if err := m.update(task, fields); err != nil {
		return nil, m.reclassifyRace(err, taskID, ActionSubmit, Models.StatusInProgress)
	}

	return m.finish(taskID, task, actorID, EventSubmitted, nil)
}

// Approve settles a pending-review task: clamp the multiplier, reserve the
// adjustment against the approver's daily budget, commit the final points and
// credit the assignee's ledger. All-or-nothing: a failed budget check leaves
// the task untouched. Retried approves on a done task are no-op successes
// returning the committed values.
func (m *Machine) Approve(taskID, approverID uint, multiplier *float64, adjustment *int) (*Models.Task, error) {
	task, err := m.load(taskID)
	if err != nil {
		return nil, err
	}
	actor, err := m.actor(approverID)
	if err != nil {
		return nil, err
	}
	if !Can(actor, ActionApprove, task) {
		return nil, &NotAuthorizedError{ActorID: approverID, Action: ActionApprove}
	}
	// Idempotent retry: an already-settled task is a no-op success, but only
	// for callers who could have approved it in the first place.
	if task.Status == Models.StatusDone {
		return task, nil
	}
	if err := m.guard(task, ActionApprove); err != nil {
		return nil, err
	}
	if task.AssigneeID == nil {
		return nil, &ValidationError{Field: "assignee_id", Reason: "task has no assignee"}
	}

	adj := 0
	if adjustment != nil {
		adj = *adjustment
	}
	mult := m.Settings.EffectiveMultiplier(task.AllowMultiplier, multiplier)
	now := m.Clock.Now()
	day := Budget.Day(now)

	magnitude := adj
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude > 0 {
		if rerr := m.Budgets.CheckAndReserve(approverID, day, magnitude); rerr != nil {
			var exceeded *Budget.ExceededError
			if errors.As(rerr, &exceeded) {
				return nil, rerr
			}
			return nil, &TransientError{Op: "reserve budget", Err: rerr}
		}
	}

	// Task update and ledger credit commit together; a failure on either side
	// rolls back both and the reservation is returned, so a settlement can
	// never half-apply.
	finalPoints := SettlePoints(task.BasePoints, mult, adj)
	err = m.Settlements.Settle(task.ID, map[string]interface{}{
		"status":       Models.StatusDone,
		"final_points": finalPoints,
		"multiplier":   mult,
		"adjustment":   adj,
		"approved_at":  now,
		"overdue":      false,
		"overdue_days": 0,
	}, task.Version, *task.AssigneeID, finalPoints)
	if err != nil {
		if magnitude > 0 {
			if relErr := m.Budgets.Release(approverID, day, magnitude); relErr != nil {
				log.Printf("failed to release budget reservation for manager %d: %v", approverID, relErr)
			}
		}
		if errors.Is(err, Models.ErrStaleVersion) {
			// Lost the race: if another approver already settled, honor the
			// idempotence contract instead of failing.
			current, rerr := m.load(taskID)
			if rerr == nil && current.Status == Models.StatusDone {
				return current, nil
			}
			return nil, &ConcurrentModificationError{TaskID: task.ID}
		}
		return nil, &TransientError{Op: "settle task", Err: err}
	}

	return m.finish(taskID, task, approverID, EventApproved, map[string]interface{}{
		"final_points": finalPoints,
		"multiplier":   mult,
		"adjustment":   adj,
	})
}

// Reject sends pending-review work back to the assignee: the proof is
// discarded, completedAt cleared and the task returns to in progress for
// resubmission.
func (m *Machine) Reject(taskID, approverID uint, reason string) (*Models.Task, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "required"}
	}
	task, err := m.load(taskID)
	if err != nil {
		return nil, err
	}
	actor, err := m.actor(approverID)
	if err != nil {
		return nil, err
	}
	if err := m.guard(task, ActionReject); err != nil {
		return nil, err
	}
	if !Can(actor, ActionReject, task) {
		return nil, &NotAuthorizedError{ActorID: approverID, Action: ActionReject}
	}

	err = m.update(task, map[string]interface{}{
		"status":           Models.StatusInProgress,
		"rejection_reason": reason,
		"proof_data":       nil,
		"completed_at":     nil,
	})
	if err != nil {
		return nil, m.reclassifyRace(err, taskID, ActionReject, Models.StatusPendingReview)
	}

	return m.finish(taskID, task, approverID, EventRejected, map[string]interface{}{"reason": reason})
}

// Hold pauses in-progress work. Held tasks are exempt from the overdue sweep
// and the overlay is zeroed until the task resumes.
func (m *Machine) Hold(taskID, actorID uint, reason string) (*Models.Task, error) {
	task, err := m.load(taskID)
	if err != nil {
		return nil, err
	}
	actor, err := m.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := m.guard(task, ActionHold); err != nil {
		return nil, err
	}
	if !Can(actor, ActionHold, task) {
		return nil, &NotAuthorizedError{ActorID: actorID, Action: ActionHold}
	}

	err = m.update(task, map[string]interface{}{
		"status":          Models.StatusOnHold,
		"hold_started_at": m.Clock.Now(),
		"overdue":         false,
		"overdue_days":    0,
	})
	if err != nil {
		return nil, m.reclassifyRace(err, taskID, ActionHold, Models.StatusInProgress)
	}

	return m.finish(taskID, task, actorID, EventHeld, map[string]interface{}{"reason": reason})
}

// Resume puts held work back in progress. The deadline is pushed forward by
// the held duration so the paused interval does not count against it.
func (m *Machine) Resume(taskID, actorID uint) (*Models.Task, error) {
	task, err := m.load(taskID)
	if err != nil {
		return nil, err
	}
	actor, err := m.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := m.guard(task, ActionResume); err != nil {
		return nil, err
	}
	if !Can(actor, ActionResume, task) {
		return nil, &NotAuthorizedError{ActorID: actorID, Action: ActionResume}
	}

	now := m.Clock.Now()
	dueAt := task.DueAt
	if task.HoldStartedAt != nil {
		dueAt = dueAt.Add(now.Sub(*task.HoldStartedAt))
	}

	err = m.update(task, map[string]interface{}{
		"status":          Models.StatusInProgress,
		"due_at":          dueAt,
		"hold_started_at": nil,
	})
	if err != nil {
		return nil, m.reclassifyRace(err, taskID, ActionResume, Models.StatusOnHold)
	}

	return m.finish(taskID, task, actorID, EventResumed, map[string]interface{}{
		"due_at": dueAt.Format(time.RFC3339),
	})
}

// Sweep marks every open or in-progress task past its deadline as overdue and
// recomputes overdueDays. Idempotent: re-running for the same now yields the
// same overlay. Tasks that transition concurrently are skipped and picked up
// by the next run.
func (m *Machine) Sweep(now time.Time) (int, error) {
	tasks, err := m.Tasks.ListDueBefore(now)
	if err != nil {
		return 0, &TransientError{Op: "list due tasks", Err: err}
	}

	swept := 0
	for i := range tasks {
		task := &tasks[i]
		days := int(now.Sub(task.DueAt).Hours() / 24)
		if task.Overdue && task.OverdueDays == days {
			continue
		}
		uerr := m.Tasks.Update(task.ID, map[string]interface{}{
			"overdue":      true,
			"overdue_days": days,
		}, task.Version)
		if uerr != nil {
			if errors.Is(uerr, Models.ErrStaleVersion) {
				continue
			}
			return swept, &TransientError{Op: "mark overdue", Err: uerr}
		}
		swept++
	}
	return swept, nil
}

func (m *Machine) load(id uint) (*Models.Task, error) {
	task, err := m.Tasks.GetByID(id)
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return nil, &NotFoundError{Kind: "task", ID: id}
		}
		return nil, &TransientError{Op: "load task", Err: err}
	}
	return task, nil
}

func (m *Machine) actor(id uint) (*Models.User, error) {
	user, err := m.Users.GetByID(id)
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return nil, &NotFoundError{Kind: "user", ID: id}
		}
		return nil, &TransientError{Op: "load user", Err: err}
	}
	return user, nil
}

func (m *Machine) guard(task *Models.Task, op string) error {
	for _, status := range legalFrom[op] {
		if task.Status == status {
			return nil
		}
	}
	return &StateTransitionError{TaskID: task.ID, Operation: op, Status: task.EffectiveStatus()}
}

func (m *Machine) update(task *Models.Task, fields map[string]interface{}) error {
	err := m.Tasks.Update(task.ID, fields, task.Version)
	if err == nil {
		return nil
	}
	if errors.Is(err, Models.ErrStaleVersion) {
		return &ConcurrentModificationError{TaskID: task.ID}
	}
	return &TransientError{Op: "update task", Err: err}
}

// reclassifyRace turns a version conflict into a StateTransitionError when
// the task demonstrably left the state the operation required, so e.g. the
// loser of a claim race sees "cannot claim while in_progress" rather than a
// bare conflict.
func (m *Machine) reclassifyRace(err error, taskID uint, op, requiredStatus string) error {
	var conflict *ConcurrentModificationError
	if !errors.As(err, &conflict) {
		return err
	}
	current, rerr := m.load(taskID)
	if rerr != nil {
		return err
	}
	if current.Status != requiredStatus {
		return &StateTransitionError{TaskID: taskID, Operation: op, Status: current.EffectiveStatus()}
	}
	return err
}

// finish reloads the committed row so the audit log and notifier see the
// post-transition state, then records and returns it.
func (m *Machine) finish(taskID uint, fallback *Models.Task, actorID uint, event string, metadata map[string]interface{}) (*Models.Task, error) {
	updated, err := m.load(taskID)
	if err != nil {
		updated = fallback
	}
	m.record(updated, actorID, event, metadata)
	return updated, nil
}

// record appends to the audit log and notifies; failures there must not roll
// back a committed transition, so they are logged and swallowed.
func (m *Machine) record(task *Models.Task, actorID uint, event string, metadata map[string]interface{}) {
	if m.Events != nil {
		if err := m.Events.Append(task.ID, actorID, event, metadata); err != nil {
			log.Printf("failed to append %s event for task %d: %v", event, task.ID, err)
		}
	}
	if m.Notifier != nil {
		m.Notifier.TaskEvent(event, task, actorID)
	}
}
