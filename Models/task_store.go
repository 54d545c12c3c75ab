package Models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound aliases the gorm sentinel so callers outside this package can
// test for missing rows without importing gorm.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleVersion is returned by optimistic updates when the row changed
// under the caller.
var ErrStaleVersion = errors.New("task version mismatch")

// TaskStore is the GORM-backed task repository used by the workflow engine.
type TaskStore struct {
	DB *gorm.DB
}

func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{DB: db}
}

func (s *TaskStore) GetByID(id uint) (*Task, error) {
	var task Task
	if err := s.DB.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskStore) ListByStatus(status string) ([]Task, error) {
	var tasks []Task
	query := s.DB.Order("due_at asc")
	if status == StatusOverdue {
		// Overdue is an overlay over open/in_progress
		query = query.Where("overdue = ? AND status IN ?", true,
			[]string{StatusOpen, StatusInProgress})
	} else {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskStore) ListByAssignee(userID uint) ([]Task, error) {
	var tasks []Task
	if err := s.DB.Where("assignee_id = ?", userID).Order("due_at asc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskStore) ListByStation(station string) ([]Task, error) {
	var tasks []Task
	if err := s.DB.Where("station = ?", station).Order("due_at asc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListDueBefore returns tasks the overdue sweep must examine: open or
// in-progress work whose deadline has passed. Held and reviewed tasks are
// excluded by status.
func (s *TaskStore) ListDueBefore(now time.Time) ([]Task, error) {
	var tasks []Task
	err := s.DB.Where("status IN ? AND due_at < ?",
		[]string{StatusOpen, StatusInProgress}, now).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountActiveByAssignee counts open/in-progress/on-hold tasks per assignee for
// the given user IDs, in one query, so the scorer sees one consistent snapshot.
func (s *TaskStore) CountActiveByAssignee(userIDs []uint) (map[uint]int, error) {
	type row struct {
		AssigneeID uint
		N          int
	}
	var rows []row
	err := s.DB.Model(&Task{}).
		Select("assignee_id, count(*) as n").
		Where("assignee_id IN ? AND status IN ?", userIDs,
			[]string{StatusOpen, StatusInProgress, StatusOnHold}).
		Group("assignee_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.AssigneeID] = r.N
	}
	return counts, nil
}

func (s *TaskStore) Create(task *Task) error {
	return s.DB.Create(task).Error
}

// Update applies the given fields only if the row still carries
// expectedVersion, bumping the version in the same statement. Returns
// ErrStaleVersion when another writer got there first.
func (s *TaskStore) Update(id uint, fields map[string]interface{}, expectedVersion uint) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = expectedVersion + 1
	res := s.DB.Model(&Task{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (s *TaskStore) Delete(id uint) error {
	return s.DB.Delete(&Task{}, id).Error
}
