package Models

import "gorm.io/gorm"

// ManagementBudget tracks how much discretionary point magnitude a manager may
// still grant or deduct on one calendar day. Rows are created lazily on first
// reserve and reset to the configured default at local midnight.
type ManagementBudget struct {
	gorm.Model
	ManagerID uint   `json:"manager_id" gorm:"uniqueIndex:idx_manager_day"`
	Day       string `json:"day" gorm:"uniqueIndex:idx_manager_day"` // YYYY-MM-DD local
	Remaining int    `json:"remaining"`
}
