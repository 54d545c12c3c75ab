package Models

import (
	"gorm.io/gorm"
)

// PointsLedger is the GORM-backed user/points repository. Point totals are
// mutated only through CreditPoints; nothing else in the codebase writes them.
type PointsLedger struct {
	DB *gorm.DB
}

func NewPointsLedger(db *gorm.DB) *PointsLedger {
	return &PointsLedger{DB: db}
}

func (l *PointsLedger) GetByID(id uint) (*User, error) {
	var user User
	if err := l.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (l *PointsLedger) ListAll() ([]User, error) {
	var users []User
	if err := l.DB.Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreditPoints adds delta to the user's weekly, monthly and lifetime totals
// in a single statement so the three accumulators never drift apart.
func (l *PointsLedger) CreditPoints(userID uint, delta int) error {
	res := l.DB.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"weekly_points":   gorm.Expr("weekly_points + ?", delta),
		"monthly_points":  gorm.Expr("monthly_points + ?", delta),
		"lifetime_points": gorm.Expr("lifetime_points + ?", delta),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
