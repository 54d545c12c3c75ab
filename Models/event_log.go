package Models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventLog is the write-side of the task audit trail.
type EventLog struct {
	DB *gorm.DB
}

func NewEventLog(db *gorm.DB) *EventLog {
	return &EventLog{DB: db}
}

func (l *EventLog) Append(taskID, actorID uint, eventType string, metadata map[string]interface{}) error {
	event := TaskEvent{
		TaskID:    taskID,
		ActorID:   actorID,
		EventType: eventType,
	}
	if metadata != nil {
		payload, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		event.Metadata = datatypes.JSON(payload)
	}
	return l.DB.Create(&event).Error
}

func (l *EventLog) ListByTask(taskID uint) ([]TaskEvent, error) {
	var events []TaskEvent
	if err := l.DB.Where("task_id = ?", taskID).Order("id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
