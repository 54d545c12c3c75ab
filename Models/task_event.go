package Models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TaskEvent is the append-only audit trail for task transitions.
type TaskEvent struct {
	gorm.Model
	TaskID    uint           `json:"task_id" gorm:"index"`
	ActorID   uint           `json:"actor_id"`
	EventType string         `json:"event_type"`
	Metadata  datatypes.JSON `json:"metadata"`
}

// EncodeJSON marshals a value for storage in a JSON column.
func EncodeJSON(v interface{}) (datatypes.JSON, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}
