package Workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
	"github.com/wenjyue84/MakanManager-sub001/Models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEngine struct {
	machine *Machine
	clock   *fakeClock
	db      *gorm.DB
	store   *Models.TaskStore
	budgets *Models.BudgetStore
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Models.Migrate(db))

	clock := &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	store := Models.NewTaskStore(db)
	budgets := Models.NewBudgetStore(db, 500)
	machine := NewMachine(store, Models.NewPointsLedger(db), Models.NewSettlementStore(db),
		Budget.NewGuard(budgets), Models.NewEventLog(db), DefaultSettings())
	machine.Clock = clock

	return &testEngine{machine: machine, clock: clock, db: db, store: store, budgets: budgets}
}

func (e *testEngine) seedUser(t *testing.T, name, station string, roles ...string) Models.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{Models.RoleStaff}
	}
	user := Models.User{
		Name:    name,
		Email:   name + "@makan.test",
		Station: station,
	}
	user.SetRoles(roles)
	user.SetSkills([]string{station})
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEngine) seedTask(t *testing.T, assigner uint, mutate func(*Models.Task)) *Models.Task {
	t.Helper()
	task := Models.Task{
		Title:           "Clean the grill",
		Station:         Models.StationKitchen,
		BasePoints:      50,
		AllowMultiplier: true,
		DueAt:           e.clock.now.Add(48 * time.Hour),
	}
	if mutate != nil {
		mutate(&task)
	}
	created, err := e.machine.Create(&task, assigner)
	require.NoError(t, err)
	return created
}

func (e *testEngine) reload(t *testing.T, id uint) *Models.Task {
	t.Helper()
	task, err := e.store.GetByID(id)
	require.NoError(t, err)
	return task
}

func ptrFloat(v float64) *float64 { return &v }

func ptrInt(v int) *int { return &v }

func TestCreateValidation(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)

	cases := []struct {
		name   string
		mutate func(*Models.Task)
	}{
		{"missing title", func(task *Models.Task) { task.Title = "" }},
		{"missing due date", func(task *Models.Task) { task.DueAt = time.Time{} }},
		{"bad station", func(task *Models.Task) { task.Station = "garage" }},
		{"base points too low", func(task *Models.Task) { task.BasePoints = 0 }},
		{"base points too high", func(task *Models.Task) { task.BasePoints = 9000 }},
		{"bad proof type", func(task *Models.Task) { task.ProofType = "video" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := Models.Task{
				Title:      "Restock fridge",
				Station:    Models.StationStore,
				BasePoints: 20,
				DueAt:      e.clock.now.Add(time.Hour),
			}
			tc.mutate(&task)
			_, err := e.machine.Create(&task, manager.ID)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}

func TestCreateWithAssigneeStartsInProgress(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)

	task := e.seedTask(t, manager.ID, func(task *Models.Task) {
		task.AssigneeID = &staff.ID
	})
	assert.Equal(t, Models.StatusInProgress, task.Status)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, staff.ID, *task.AssigneeID)
}

func TestClaimAssignsOpenTask(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)

	claimed, err := e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssigneeID)
	assert.Equal(t, staff.ID, *claimed.AssigneeID)
	assert.Greater(t, claimed.Version, task.Version)
}

func TestClaimTakenTaskFails(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	first := e.seedUser(t, "ali", Models.StationKitchen)
	second := e.seedUser(t, "siti", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)

	_, err := e.machine.Claim(task.ID, first.ID)
	require.NoError(t, err)

	_, err = e.machine.Claim(task.ID, second.ID)
	var transition *StateTransitionError
	require.ErrorAs(t, err, &transition)

	current := e.reload(t, task.ID)
	assert.Equal(t, first.ID, *current.AssigneeID)
}

// contendedTaskStore lets a rival writer slip in between a reader's load and
// its optimistic update, reproducing a claim race deterministically.
type contendedTaskStore struct {
	*Models.TaskStore
	rival func(id uint, expectedVersion uint)
	fired bool
}

func (s *contendedTaskStore) Update(id uint, fields map[string]interface{}, expectedVersion uint) error {
	if !s.fired && s.rival != nil {
		s.fired = true
		s.rival(id, expectedVersion)
	}
	return s.TaskStore.Update(id, fields, expectedVersion)
}

// contendedSettler does the same for the settlement commit.
type contendedSettler struct {
	*Models.SettlementStore
	rival func()
	fired bool
}

func (s *contendedSettler) Settle(taskID uint, fields map[string]interface{}, expectedVersion uint, assigneeID uint, points int) error {
	if !s.fired && s.rival != nil {
		s.fired = true
		s.rival()
	}
	return s.SettlementStore.Settle(taskID, fields, expectedVersion, assigneeID, points)
}

// flakySettler fails its first commit without touching the database.
type flakySettler struct {
	*Models.SettlementStore
	failures int
}

func (s *flakySettler) Settle(taskID uint, fields map[string]interface{}, expectedVersion uint, assigneeID uint, points int) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	return s.SettlementStore.Settle(taskID, fields, expectedVersion, assigneeID, points)
}

func TestClaimRaceHasExactlyOneWinner(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	winner := e.seedUser(t, "ali", Models.StationKitchen)
	loser := e.seedUser(t, "siti", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)

	contended := &contendedTaskStore{
		TaskStore: e.store,
		rival: func(id uint, expectedVersion uint) {
			require.NoError(t, e.store.Update(id, map[string]interface{}{
				"assignee_id": winner.ID,
				"status":      Models.StatusInProgress,
			}, expectedVersion))
		},
	}
	e.machine.Tasks = contended

	_, err := e.machine.Claim(task.ID, loser.ID)
	var transition *StateTransitionError
	require.ErrorAs(t, err, &transition)

	current := e.reload(t, task.ID)
	assert.Equal(t, Models.StatusInProgress, current.Status)
	assert.Equal(t, winner.ID, *current.AssigneeID)
}

func TestSubmitMovesToPendingReview(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	_, err := e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)

	submitted, err := e.machine.Submit(task.ID, staff.ID, map[string]interface{}{"file": "photo.jpg"})
	require.NoError(t, err)
	assert.Equal(t, Models.StatusPendingReview, submitted.Status)
	require.NotNil(t, submitted.CompletedAt)
	assert.WithinDuration(t, e.clock.now, *submitted.CompletedAt, time.Second)
	assert.NotEmpty(t, submitted.ProofData)
}

func TestSubmitByNonAssigneeFails(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	other := e.seedUser(t, "siti", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	_, err := e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)

	_, err = e.machine.Submit(task.ID, other.ID, nil)
	var authz *NotAuthorizedError
	require.ErrorAs(t, err, &authz)

	// management override closes out work on the assignee's behalf
	_, err = e.machine.Submit(task.ID, manager.ID, nil)
	require.NoError(t, err)
}

func submitTask(t *testing.T, e *testEngine, task *Models.Task, staff Models.User) {
	t.Helper()
	_, err := e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)
	_, err = e.machine.Submit(task.ID, staff.ID, map[string]interface{}{"file": "photo.jpg"})
	require.NoError(t, err)
}

func TestApproveSettlesPoints(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	approved, err := e.machine.Approve(task.ID, manager.ID, ptrFloat(1.5), ptrInt(10))
	require.NoError(t, err)
	assert.Equal(t, Models.StatusDone, approved.Status)
	require.NotNil(t, approved.FinalPoints)
	assert.Equal(t, 85, *approved.FinalPoints) // round(50 x 1.5) + 10
	assert.Equal(t, 1.5, *approved.Multiplier)
	assert.Equal(t, 10, *approved.Adjustment)
	require.NotNil(t, approved.ApprovedAt)

	var user Models.User
	require.NoError(t, e.db.First(&user, staff.ID).Error)
	assert.Equal(t, 85, user.WeeklyPoints)
	assert.Equal(t, 85, user.MonthlyPoints)
	assert.Equal(t, 85, user.LifetimePoints)
}

func TestApproveClampsMultiplier(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	approved, err := e.machine.Approve(task.ID, manager.ID, ptrFloat(5.0), nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, *approved.Multiplier)
	assert.Equal(t, 150, *approved.FinalPoints)
}

func TestApproveIgnoresMultiplierWhenNotAllowed(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, func(task *Models.Task) {
		task.AllowMultiplier = false
	})
	submitTask(t, e, task, staff)

	approved, err := e.machine.Approve(task.ID, manager.ID, ptrFloat(2.0), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *approved.Multiplier)
	assert.Equal(t, 50, *approved.FinalPoints)
}

func TestApproveIdempotent(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	first, err := e.machine.Approve(task.ID, manager.ID, ptrFloat(1.5), ptrInt(10))
	require.NoError(t, err)

	second, err := e.machine.Approve(task.ID, manager.ID, ptrFloat(2.0), ptrInt(99))
	require.NoError(t, err)
	assert.Equal(t, *first.FinalPoints, *second.FinalPoints)

	// exactly one payout
	var user Models.User
	require.NoError(t, e.db.First(&user, staff.ID).Error)
	assert.Equal(t, 85, user.LifetimePoints)
}

func TestApproveBudgetExceeded(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	// burn the budget down to 40
	day := Budget.Day(e.clock.now)
	require.NoError(t, e.budgets.Reserve(manager.ID, day, 460))

	_, err := e.machine.Approve(task.ID, manager.ID, nil, ptrInt(50))
	var exceeded *Budget.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 40, exceeded.Remaining)

	// nothing moved: task untouched, budget untouched, no payout
	current := e.reload(t, task.ID)
	assert.Equal(t, Models.StatusPendingReview, current.Status)
	assert.Nil(t, current.FinalPoints)

	remaining, err := e.budgets.GetRemaining(manager.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 40, remaining)

	var user Models.User
	require.NoError(t, e.db.First(&user, staff.ID).Error)
	assert.Zero(t, user.LifetimePoints)
}

func TestApproveNegativeAdjustmentConsumesBudget(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	approved, err := e.machine.Approve(task.ID, manager.ID, nil, ptrInt(-30))
	require.NoError(t, err)
	assert.Equal(t, 20, *approved.FinalPoints) // 50 x 1.0 - 30

	remaining, err := e.budgets.GetRemaining(manager.ID, Budget.Day(e.clock.now))
	require.NoError(t, err)
	assert.Equal(t, 470, remaining)
}

func TestSelfApprovalPolicy(t *testing.T) {
	e := newTestEngine(t)
	owner := e.seedUser(t, "boss", Models.StationFront, Models.RoleOwner)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)

	managerTask := e.seedTask(t, owner.ID, nil)
	submitTask(t, e, managerTask, manager)
	_, err := e.machine.Approve(managerTask.ID, manager.ID, nil, nil)
	var authz *NotAuthorizedError
	require.ErrorAs(t, err, &authz)

	ownerTask := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, ownerTask, owner)
	_, err = e.machine.Approve(ownerTask.ID, owner.ID, nil, nil)
	require.NoError(t, err)
}

func TestApproveRaceIsIdempotentAndRefundsBudget(t *testing.T) {
	e := newTestEngine(t)
	rival := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	loser := e.seedUser(t, "raj", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, e.seedUser(t, "boss", Models.StationFront, Models.RoleOwner).ID, nil)
	submitTask(t, e, task, staff)

	rivalMachine := *e.machine
	contended := &contendedSettler{
		SettlementStore: Models.NewSettlementStore(e.db),
		rival: func() {
			_, rerr := rivalMachine.Approve(task.ID, rival.ID, nil, ptrInt(20))
			require.NoError(t, rerr)
		},
	}
	e.machine.Settlements = contended

	result, err := e.machine.Approve(task.ID, loser.ID, nil, ptrInt(30))
	require.NoError(t, err)
	require.NotNil(t, result.FinalPoints)
	assert.Equal(t, 70, *result.FinalPoints) // rival's settlement: 50 + 20

	// exactly one payout
	var user Models.User
	require.NoError(t, e.db.First(&user, staff.ID).Error)
	assert.Equal(t, 70, user.LifetimePoints)

	// the loser's reservation was released
	day := Budget.Day(e.clock.now)
	remaining, err := e.budgets.GetRemaining(loser.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 500, remaining)
	rivalRemaining, err := e.budgets.GetRemaining(rival.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 480, rivalRemaining)
}

func TestApproveCreditFailureLeavesNoPartialEffects(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	// the assignee vanishes before the approval commits; the ledger credit
	// inside the settlement transaction fails and must take the task update
	// down with it
	require.NoError(t, e.db.Delete(&Models.User{}, staff.ID).Error)

	_, err := e.machine.Approve(task.ID, manager.ID, nil, ptrInt(30))
	var transient *TransientError
	require.ErrorAs(t, err, &transient)

	current := e.reload(t, task.ID)
	assert.Equal(t, Models.StatusPendingReview, current.Status)
	assert.Nil(t, current.FinalPoints)
	assert.Nil(t, current.ApprovedAt)

	remaining, berr := e.budgets.GetRemaining(manager.ID, Budget.Day(e.clock.now))
	require.NoError(t, berr)
	assert.Equal(t, 500, remaining)
}

func TestApproveRetriesAfterTransientFailure(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	e.machine.Settlements = &flakySettler{
		SettlementStore: Models.NewSettlementStore(e.db),
		failures:        1,
	}

	_, err := e.machine.Approve(task.ID, manager.ID, nil, ptrInt(10))
	var transient *TransientError
	require.ErrorAs(t, err, &transient)

	// the failed attempt left nothing behind: reservation returned, task
	// still reviewable
	day := Budget.Day(e.clock.now)
	remaining, berr := e.budgets.GetRemaining(manager.ID, day)
	require.NoError(t, berr)
	assert.Equal(t, 500, remaining)
	assert.Equal(t, Models.StatusPendingReview, e.reload(t, task.ID).Status)

	approved, err := e.machine.Approve(task.ID, manager.ID, nil, ptrInt(10))
	require.NoError(t, err)
	assert.Equal(t, 60, *approved.FinalPoints)

	var user Models.User
	require.NoError(t, e.db.First(&user, staff.ID).Error)
	assert.Equal(t, 60, user.LifetimePoints)

	remaining, berr = e.budgets.GetRemaining(manager.ID, day)
	require.NoError(t, berr)
	assert.Equal(t, 490, remaining)
}

func TestApproveRetryStillChecksAuthorization(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	_, err := e.machine.Approve(task.ID, manager.ID, nil, nil)
	require.NoError(t, err)

	// the idempotent-retry path must not skip the actor or policy checks
	_, err = e.machine.Approve(task.ID, 999, nil, nil)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = e.machine.Approve(task.ID, staff.ID, nil, nil)
	var authz *NotAuthorizedError
	require.ErrorAs(t, err, &authz)
}

func TestRejectSendsTaskBack(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	rejected, err := e.machine.Reject(task.ID, manager.ID, "blurry photo")
	require.NoError(t, err)
	assert.Equal(t, Models.StatusInProgress, rejected.Status)
	assert.Equal(t, "blurry photo", rejected.RejectionReason)
	assert.Empty(t, rejected.ProofData)
	assert.Nil(t, rejected.CompletedAt)
	assert.Nil(t, rejected.FinalPoints)
	require.NotNil(t, rejected.AssigneeID)
	assert.Equal(t, staff.ID, *rejected.AssigneeID)

	// resubmission clears the old reason
	resubmitted, err := e.machine.Submit(task.ID, staff.ID, map[string]interface{}{"file": "better.jpg"})
	require.NoError(t, err)
	assert.Empty(t, resubmitted.RejectionReason)
}

func TestRejectRequiresReason(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	_, err := e.machine.Reject(1, manager.ID, "")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDoneTaskIsImmutable(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)

	approved, err := e.machine.Approve(task.ID, manager.ID, nil, nil)
	require.NoError(t, err)
	settled := *approved.FinalPoints

	for _, op := range []func() error{
		func() error { _, err := e.machine.Claim(task.ID, staff.ID); return err },
		func() error { _, err := e.machine.Submit(task.ID, staff.ID, nil); return err },
		func() error { _, err := e.machine.Reject(task.ID, manager.ID, "nope"); return err },
		func() error { _, err := e.machine.Hold(task.ID, staff.ID, "pause"); return err },
		func() error { _, err := e.machine.Resume(task.ID, staff.ID); return err },
	} {
		var transition *StateTransitionError
		require.ErrorAs(t, op(), &transition)
	}

	current := e.reload(t, task.ID)
	assert.Equal(t, settled, *current.FinalPoints)
}

func TestHoldAndResumeExtendDeadline(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	_, err := e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)
	originalDue := e.reload(t, task.ID).DueAt

	held, err := e.machine.Hold(task.ID, staff.ID, "waiting on supplies")
	require.NoError(t, err)
	assert.Equal(t, Models.StatusOnHold, held.Status)
	require.NotNil(t, held.HoldStartedAt)

	e.clock.Advance(2 * time.Hour)

	resumed, err := e.machine.Resume(task.ID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusInProgress, resumed.Status)
	assert.Nil(t, resumed.HoldStartedAt)
	assert.Equal(t, originalDue.Add(2*time.Hour).Unix(), resumed.DueAt.Unix())
}

func TestSweepMarksOverdue(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	task := e.seedTask(t, manager.ID, func(task *Models.Task) {
		task.DueAt = e.clock.now.Add(-26 * time.Hour)
	})

	swept, err := e.machine.Sweep(e.clock.now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	current := e.reload(t, task.ID)
	assert.True(t, current.Overdue)
	assert.Equal(t, 1, current.OverdueDays)
	assert.Equal(t, Models.StatusOverdue, current.EffectiveStatus())
	assert.Equal(t, Models.StatusOpen, current.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	task := e.seedTask(t, manager.ID, func(task *Models.Task) {
		task.DueAt = e.clock.now.Add(-26 * time.Hour)
	})

	_, err := e.machine.Sweep(e.clock.now)
	require.NoError(t, err)
	swept, err := e.machine.Sweep(e.clock.now)
	require.NoError(t, err)
	assert.Zero(t, swept)

	current := e.reload(t, task.ID)
	assert.Equal(t, 1, current.OverdueDays)
}

func TestSweepExemptsHeldAndReviewedTasks(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)

	held := e.seedTask(t, manager.ID, nil)
	_, err := e.machine.Claim(held.ID, staff.ID)
	require.NoError(t, err)
	_, err = e.machine.Hold(held.ID, staff.ID, "pause")
	require.NoError(t, err)

	reviewed := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, reviewed, staff)

	e.clock.Advance(72 * time.Hour)
	swept, err := e.machine.Sweep(e.clock.now)
	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.False(t, e.reload(t, held.ID).Overdue)
	assert.False(t, e.reload(t, reviewed.ID).Overdue)
}

func TestClaimFromOverdueProceeds(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, func(task *Models.Task) {
		task.DueAt = e.clock.now.Add(-26 * time.Hour)
	})
	_, err := e.machine.Sweep(e.clock.now)
	require.NoError(t, err)

	claimed, err := e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusInProgress, claimed.Status)
	// still past due, so the overlay persists until submit
	assert.Equal(t, Models.StatusOverdue, claimed.EffectiveStatus())
}

func TestSubmitClearsOverdueOverlay(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, func(task *Models.Task) {
		task.DueAt = e.clock.now.Add(-26 * time.Hour)
	})
	_, err := e.machine.Sweep(e.clock.now)
	require.NoError(t, err)

	_, err = e.machine.Claim(task.ID, staff.ID)
	require.NoError(t, err)
	submitted, err := e.machine.Submit(task.ID, staff.ID, nil)
	require.NoError(t, err)
	assert.False(t, submitted.Overdue)
	assert.Zero(t, submitted.OverdueDays)
	assert.Equal(t, Models.StatusPendingReview, submitted.EffectiveStatus())
}

func TestAuditTrailRecordsTransitions(t *testing.T) {
	e := newTestEngine(t)
	manager := e.seedUser(t, "mina", Models.StationFront, Models.RoleManager)
	staff := e.seedUser(t, "ali", Models.StationKitchen)
	task := e.seedTask(t, manager.ID, nil)
	submitTask(t, e, task, staff)
	_, err := e.machine.Approve(task.ID, manager.ID, nil, nil)
	require.NoError(t, err)

	var events []Models.TaskEvent
	require.NoError(t, e.db.Where("task_id = ?", task.ID).Order("id asc").Find(&events).Error)
	types := make([]string, len(events))
	for i, event := range events {
		types[i] = event.EventType
	}
	assert.Equal(t, []string{EventCreated, EventClaimed, EventSubmitted, EventApproved}, types)
}

func TestOperationsOnMissingTask(t *testing.T) {
	e := newTestEngine(t)
	staff := e.seedUser(t, "ali", Models.StationKitchen)

	_, err := e.machine.Claim(999, staff.ID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "task", notFound.Kind)

	task := e.seedTask(t, staff.ID, nil)
	_, err = e.machine.Claim(task.ID, 999)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Kind)
}
