package Scoring

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/wenjyue84/MakanManager-sub001/Models"
)

// Score clamp and confidence thresholds.
const (
	ScoreMin = 0
	ScoreMax = 150

	HighConfidenceScore   = 120
	MediumConfidenceScore = 80
)

// Confidence tiers
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Workload impact buckets
const (
	ImpactMinimal     = "minimal"
	ImpactModerate    = "moderate"
	ImpactSignificant = "significant"
)

// Weights is the scoring policy as data, tunable via config.json5 without
// touching the scorer.
type Weights struct {
	Base            int `json:"base"`
	SkillBonusPer   int `json:"skill_bonus_per"`   // per matching verified skill
	SkillBonusCap   int `json:"skill_bonus_cap"`   // affinity bonus ceiling
	StationBonus    int `json:"station_bonus"`     // home station equals task station
	WorkloadPenalty int `json:"workload_penalty"`  // per active task
	MinimalLoad     int `json:"minimal_load"`      // active tasks after assignment
	ModerateLoad    int `json:"moderate_load"`
}

func DefaultWeights() Weights {
	return Weights{
		Base:            100,
		SkillBonusPer:   15,
		SkillBonusCap:   30,
		StationBonus:    20,
		WorkloadPenalty: 8,
		MinimalLoad:     3,
		ModerateLoad:    6,
	}
}

// Candidate bundles a user with a workload snapshot taken at query time.
type Candidate struct {
	User        Models.User
	ActiveTasks int
}

// Suggestion is an ephemeral, explainable ranking entry. Never persisted.
type Suggestion struct {
	UserID              uint     `json:"user_id"`
	Name                string   `json:"name"`
	Score               int      `json:"score"`
	Confidence          string   `json:"confidence"`
	WorkloadImpact      string   `json:"workload_impact"`
	EstimatedCompletion string   `json:"estimated_completion"`
	Reasons             []string `json:"reasons"`
}

// Rank scores the candidates for a task and returns them ordered best first.
// Pure: identical inputs yield identical ordering, scores and reasons. Ties
// break on ascending user ID. The task's assigner is excluded.
func Rank(task *Models.Task, candidates []Candidate, now time.Time, w Weights) []Suggestion {
	suggestions := make([]Suggestion, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.User.ID == task.AssignerID {
			continue
		}
		suggestions = append(suggestions, score(task, candidate, now, w))
	}

	slices.SortStableFunc(suggestions, func(a, b Suggestion) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
	return suggestions
}

func score(task *Models.Task, candidate Candidate, now time.Time, w Weights) Suggestion {
	user := candidate.User
	total := w.Base
	var reasons []string

	matching := 0
	for _, skill := range user.SkillList() {
		if skill == task.Station {
			matching++
		}
	}
	if matching > 0 {
		bonus := matching * w.SkillBonusPer
		if bonus > w.SkillBonusCap {
			bonus = w.SkillBonusCap
		}
		total += bonus
		reasons = append(reasons, fmt.Sprintf("%d verified skill(s) for the %s station (+%d)", matching, task.Station, bonus))
	}

	if user.Station == task.Station {
		total += w.StationBonus
		reasons = append(reasons, fmt.Sprintf("home station matches %s (+%d)", task.Station, w.StationBonus))
	}

	if candidate.ActiveTasks > 0 {
		penalty := candidate.ActiveTasks * w.WorkloadPenalty
		total -= penalty
		reasons = append(reasons, fmt.Sprintf("%d active task(s) (-%d)", candidate.ActiveTasks, penalty))
	} else {
		reasons = append(reasons, "no active tasks")
	}

	if total < ScoreMin {
		total = ScoreMin
	}
	if total > ScoreMax {
		total = ScoreMax
	}

	return Suggestion{
		UserID:              user.ID,
		Name:                user.Name,
		Score:               total,
		Confidence:          confidence(total),
		WorkloadImpact:      workloadImpact(candidate.ActiveTasks+1, w),
		EstimatedCompletion: estimateCompletion(task, &user, now),
		Reasons:             reasons,
	}
}

func confidence(score int) string {
	switch {
	case score >= HighConfidenceScore:
		return ConfidenceHigh
	case score >= MediumConfidenceScore:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func workloadImpact(loadAfter int, w Weights) string {
	switch {
	case loadAfter <= w.MinimalLoad:
		return ImpactMinimal
	case loadAfter <= w.ModerateLoad:
		return ImpactModerate
	}
	return ImpactSignificant
}

// estimateCompletion scales the remaining time to the deadline by the
// candidate's historical completion ratio: a staff member who finishes 80% of
// tasks on time is expected to take proportionally longer.
func estimateCompletion(task *Models.Task, user *Models.User, now time.Time) string {
	remaining := task.DueAt.Sub(now)
	if remaining <= 0 {
		return "overdue"
	}
	ratio := user.CompletionRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	estimate := time.Duration(float64(remaining) / ratio)
	return estimate.Round(time.Minute).String()
}
