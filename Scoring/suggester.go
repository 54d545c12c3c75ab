package Scoring

import (
	"time"

	"github.com/wenjyue84/MakanManager-sub001/Models"
)

type UserLister interface {
	ListAll() ([]Models.User, error)
}

type WorkloadCounter interface {
	CountActiveByAssignee(userIDs []uint) (map[uint]int, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Suggester snapshots candidate workloads and ranks assignees for a task.
// Read-only; no locking needed, but all workload counts come from a single
// query so one call sees one consistent snapshot.
type Suggester struct {
	Users   UserLister
	Tasks   WorkloadCounter
	Clock   Clock
	Weights Weights
}

func NewSuggester(users UserLister, tasks WorkloadCounter, weights Weights) *Suggester {
	return &Suggester{Users: users, Tasks: tasks, Clock: systemClock{}, Weights: weights}
}

func (s *Suggester) Suggest(task *Models.Task) ([]Suggestion, error) {
	users, err := s.Users.ListAll()
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	counts, err := s.Tasks.CountActiveByAssignee(ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(users))
	for _, u := range users {
		candidates = append(candidates, Candidate{User: u, ActiveTasks: counts[u.ID]})
	}
	return Rank(task, candidates, s.Clock.Now(), s.Weights), nil
}
