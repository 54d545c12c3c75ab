package Models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roles
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"uniqueIndex"`
	Password []byte `json:"-"`

	Roles   datatypes.JSON `json:"roles"`  // e.g. ["staff"], ["manager","staff"]
	Station string         `json:"station"` // home station affinity
	Skills  datatypes.JSON `json:"skills"` // verified skill tags, station names included

	WeeklyPoints   int `json:"weekly_points"`
	MonthlyPoints  int `json:"monthly_points"`
	LifetimePoints int `json:"lifetime_points"`

	// Fraction of past tasks completed before their deadline, 0..1.
	// Used by the assignment scorer's completion-time heuristic.
	CompletionRatio float64 `json:"completion_ratio" gorm:"default:1"`
}

func (u *User) RoleList() []string {
	return decodeStringList(u.Roles)
}

func (u *User) SkillList() []string {
	return decodeStringList(u.Skills)
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// IsManagement reports whether the user holds any management role.
func (u *User) IsManagement() bool {
	return u.HasRole(RoleOwner) || u.HasRole(RoleManager)
}

func (u *User) SetRoles(roles []string) {
	u.Roles = encodeStringList(roles)
}

func (u *User) SetSkills(skills []string) {
	u.Skills = encodeStringList(skills)
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStringList(values []string) datatypes.JSON {
	b, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func ValidRole(r string) bool {
	switch r {
	case RoleOwner, RoleManager, RoleStaff:
		return true
	}
	return false
}
