package Models

import "gorm.io/gorm"

// SettlementStore commits an approval atomically: the optimistic task update
// and the assignee's ledger credit run in one transaction, so a task can
// never be marked done without its points landing, or vice versa.
type SettlementStore struct {
	DB *gorm.DB
}

func NewSettlementStore(db *gorm.DB) *SettlementStore {
	return &SettlementStore{DB: db}
}

func (s *SettlementStore) Settle(taskID uint, fields map[string]interface{}, expectedVersion uint, assigneeID uint, points int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := NewTaskStore(tx).Update(taskID, fields, expectedVersion); err != nil {
			return err
		}
		return NewPointsLedger(tx).CreditPoints(assigneeID, points)
	})
}
