package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Models"
	"github.com/wenjyue84/MakanManager-sub001/Scoring"
)

// SuggestionController serves assignment recommendations for open tasks.
type SuggestionController struct {
	DB        *gorm.DB
	Suggester *Scoring.Suggester
}

func NewSuggestionController(db *gorm.DB, suggester *Scoring.Suggester) *SuggestionController {
	return &SuggestionController{DB: db, Suggester: suggester}
}

func (c *SuggestionController) GetSuggestions(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || id <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.Task
	if err := c.DB.First(&task, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if task.Status != Models.StatusOpen {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Suggestions are only available for open tasks"})
	}

	suggestions, err := c.Suggester.Suggest(&task)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute suggestions"})
	}
	return ctx.JSON(suggestions)
}
