package CronJobs

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
	"github.com/wenjyue84/MakanManager-sub001/Workflow"
)

// Scheduler drives the two periodic engine duties: the overdue sweep and the
// nightly budget reset.
type Scheduler struct {
	cronScheduler *cron.Cron
	machine       *Workflow.Machine
	guard         *Budget.Guard
	sweepJobID    cron.EntryID
	resetJobID    cron.EntryID
}

func NewScheduler(machine *Workflow.Machine, guard *Budget.Guard) *Scheduler {
	return &Scheduler{
		cronScheduler: cron.New(cron.WithSeconds()),
		machine:       machine,
		guard:         guard,
	}
}

// Start registers and launches the jobs: sweep every 15 minutes, budget reset
// at local midnight.
func (s *Scheduler) Start() error {
	var err error
	s.sweepJobID, err = s.cronScheduler.AddFunc("0 */15 * * * *", func() {
		s.RunSweep()
	})
	if err != nil {
		return fmt.Errorf("error scheduling overdue sweep: %w", err)
	}

	s.resetJobID, err = s.cronScheduler.AddFunc("0 0 0 * * *", func() {
		s.RunBudgetReset()
	})
	if err != nil {
		return fmt.Errorf("error scheduling budget reset: %w", err)
	}

	s.cronScheduler.Start()
	log.Println("Scheduler started - sweep every 15 minutes, budget reset at midnight")
	return nil
}

// Stop terminates the scheduler
func (s *Scheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Scheduler stopped")
	}
}

// RunSweep executes the overdue sweep once.
func (s *Scheduler) RunSweep() {
	now := s.machine.Clock.Now()
	swept, err := s.machine.Sweep(now)
	if err != nil {
		log.Printf("Error in overdue sweep: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("Overdue sweep marked %d task(s)", swept)
	}
}

// RunBudgetReset restores every manager's allowance for the new day.
func (s *Scheduler) RunBudgetReset() {
	day := Budget.Day(s.machine.Clock.Now())
	if err := s.guard.ResetAll(day); err != nil {
		log.Printf("Error resetting budgets for %s: %v", day, err)
		return
	}
	log.Printf("Budgets reset for %s", day)
}
