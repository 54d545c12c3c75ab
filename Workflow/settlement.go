package Workflow

import "math"

// Settings are the engine tunables, loaded from config.json5 at startup.
type Settings struct {
	BasePointsMin      int     `json:"base_points_min"`
	BasePointsMax      int     `json:"base_points_max"`
	MultiplierMin      float64 `json:"multiplier_min"`
	MultiplierMax      float64 `json:"multiplier_max"`
	DailyBudgetDefault int     `json:"daily_budget_default"`
}

func DefaultSettings() Settings {
	return Settings{
		BasePointsMin:      5,
		BasePointsMax:      200,
		MultiplierMin:      0.5,
		MultiplierMax:      3.0,
		DailyBudgetDefault: 500,
	}
}

// EffectiveMultiplier clamps the requested multiplier into the configured
// bounds. Tasks created without multiplier permission settle at 1.0 no matter
// what the approver asked for.
func (s Settings) EffectiveMultiplier(allowMultiplier bool, requested *float64) float64 {
	if !allowMultiplier {
		return 1.0
	}
	m := 1.0
	if requested != nil {
		m = *requested
	}
	if m < s.MultiplierMin {
		m = s.MultiplierMin
	}
	if m > s.MultiplierMax {
		m = s.MultiplierMax
	}
	return m
}

// SettlePoints computes the final award: round(base x multiplier) + adjustment.
func SettlePoints(basePoints int, multiplier float64, adjustment int) int {
	return int(math.Round(float64(basePoints)*multiplier)) + adjustment
}
