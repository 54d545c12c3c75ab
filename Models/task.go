package Models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task statuses. A task keeps its underlying progress status at all times;
// overdue is an overlay (Overdue + OverdueDays) so claim/submit/hold from an
// overdue task behave exactly as from the state it decayed from.
const (
	StatusOpen          = "open"
	StatusInProgress    = "in_progress"
	StatusOnHold        = "on_hold"
	StatusPendingReview = "pending_review"
	StatusDone          = "done"
	StatusOverdue       = "overdue"
)

// Stations
const (
	StationKitchen = "kitchen"
	StationFront   = "front"
	StationStore   = "store"
	StationOutdoor = "outdoor"
)

// Proof types
const (
	ProofNone      = "none"
	ProofPhoto     = "photo"
	ProofText      = "text"
	ProofChecklist = "checklist"
)

type Task struct {
	gorm.Model
	Title       string `json:"title"`
	Description string `json:"description"`
	Station     string `json:"station" gorm:"index"`
	Status      string `json:"status" gorm:"index;default:'open'"`

	BasePoints      int      `json:"base_points"`
	FinalPoints     *int     `json:"final_points"`
	Multiplier      *float64 `json:"multiplier"`
	Adjustment      *int     `json:"adjustment"`
	AllowMultiplier bool     `json:"allow_multiplier"`

	DueAt       time.Time  `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at"`
	ApprovedAt  *time.Time `json:"approved_at"`

	AssignerID uint  `json:"assigner_id" gorm:"index"`
	AssigneeID *uint `json:"assignee_id" gorm:"index"`

	ProofType string         `json:"proof_type" gorm:"default:'none'"`
	ProofData datatypes.JSON `json:"proof_data"`

	RejectionReason string `json:"rejection_reason"`

	Overdue       bool       `json:"overdue" gorm:"index"`
	OverdueDays   int        `json:"overdue_days"`
	HoldStartedAt *time.Time `json:"hold_started_at"`

	// Optimistic lock column; bumped on every update
	Version uint `json:"version" gorm:"default:1"`

	// Populated after reads, not stored
	EffectiveStatusValue string `json:"effective_status" gorm:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.Version == 0 {
		t.Version = 1
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.ProofType == "" {
		t.ProofType = ProofNone
	}
	return nil
}

func (t *Task) AfterFind(tx *gorm.DB) error {
	t.EffectiveStatusValue = t.EffectiveStatus()
	return nil
}

// EffectiveStatus reports the status shown to callers, folding the overdue
// overlay over the underlying progress state.
func (t *Task) EffectiveStatus() string {
	if t.Overdue && (t.Status == StatusOpen || t.Status == StatusInProgress) {
		return StatusOverdue
	}
	return t.Status
}

// Active reports whether the task counts toward its assignee's workload.
func (t *Task) Active() bool {
	switch t.Status {
	case StatusOpen, StatusInProgress, StatusOnHold:
		return true
	}
	return false
}

func ValidStation(s string) bool {
	switch s {
	case StationKitchen, StationFront, StationStore, StationOutdoor:
		return true
	}
	return false
}

func ValidProofType(p string) bool {
	switch p {
	case ProofNone, ProofPhoto, ProofText, ProofChecklist:
		return true
	}
	return false
}
