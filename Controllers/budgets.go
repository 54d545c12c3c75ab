package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
)

// BudgetController exposes a manager's remaining daily discretionary
// allowance. All mutation goes through the guard inside the engine.
type BudgetController struct {
	Guard *Budget.Guard
	Clock func() string // today's budget day, injectable for tests
}

func NewBudgetController(guard *Budget.Guard, today func() string) *BudgetController {
	return &BudgetController{Guard: guard, Clock: today}
}

func (c *BudgetController) GetRemaining(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}

	day := c.Clock()
	remaining, err := c.Guard.Remaining(user.ID, day)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load budget"})
	}
	return ctx.JSON(fiber.Map{
		"manager_id": user.ID,
		"day":        day,
		"remaining":  remaining,
	})
}
