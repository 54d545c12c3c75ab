package Models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
)

// BudgetStore persists per-(manager, day) discretionary allowances. The
// check-and-decrement runs as one conditional UPDATE so concurrent reserves
// can never jointly overspend.
type BudgetStore struct {
	DB           *gorm.DB
	DefaultDaily int
}

func NewBudgetStore(db *gorm.DB, defaultDaily int) *BudgetStore {
	return &BudgetStore{DB: db, DefaultDaily: defaultDaily}
}

func (s *BudgetStore) GetRemaining(managerID uint, day string) (int, error) {
	var budget ManagementBudget
	err := s.DB.Where("manager_id = ? AND day = ?", managerID, day).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Lazily defaulted: no row yet means the full allowance
		return s.DefaultDaily, nil
	}
	if err != nil {
		return 0, err
	}
	return budget.Remaining, nil
}

func (s *BudgetStore) Reserve(managerID uint, day string, magnitude int) error {
	if magnitude <= 0 {
		return nil
	}
	for attempt := 0; ; attempt++ {
		res := s.DB.Model(&ManagementBudget{}).
			Where("manager_id = ? AND day = ? AND remaining >= ?", managerID, day, magnitude).
			Update("remaining", gorm.Expr("remaining - ?", magnitude))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}

		// Either the row is missing or the allowance is short
		var budget ManagementBudget
		err := s.DB.Where("manager_id = ? AND day = ?", managerID, day).First(&budget).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if attempt > 0 {
				return fmt.Errorf("budget row for manager %d on %s unavailable", managerID, day)
			}
			row := ManagementBudget{ManagerID: managerID, Day: day, Remaining: s.DefaultDaily}
			if cerr := s.DB.Create(&row).Error; cerr != nil && !isDuplicateKey(cerr) {
				return cerr
			}
			// Row exists now; retry the conditional decrement
		case err != nil:
			return err
		default:
			return &Budget.ExceededError{
				ManagerID: managerID,
				Day:       day,
				Requested: magnitude,
				Remaining: budget.Remaining,
			}
		}
	}
}

// Release returns a reservation that was never committed.
func (s *BudgetStore) Release(managerID uint, day string, magnitude int) error {
	if magnitude <= 0 {
		return nil
	}
	return s.DB.Model(&ManagementBudget{}).
		Where("manager_id = ? AND day = ?", managerID, day).
		Update("remaining", gorm.Expr("remaining + ?", magnitude)).Error
}

func (s *BudgetStore) ResetAll(day string) error {
	return s.DB.Model(&ManagementBudget{}).
		Where("day = ?", day).
		Update("remaining", s.DefaultDaily).Error
}

func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry")
}
