package Models

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// FCMToken stores a staff device token for push notifications.
type FCMToken struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"index"`
	Value  string `json:"value" gorm:"uniqueIndex"`
}

type UpdateTokenRequest struct {
	Value string `json:"value" validate:"required"`
}

// UpdateToken registers or refreshes the calling user's device token.
func UpdateToken(c *fiber.Ctx) error {
	var req UpdateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token value is required",
		})
	}

	user, ok := c.Locals("user").(User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not logged in",
		})
	}

	var token FCMToken
	result := DB.Where("value = ?", req.Value).First(&token)
	if result.Error != nil {
		token = FCMToken{UserID: user.ID, Value: req.Value}
		if err := DB.Create(&token).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to save token",
			})
		}
	} else if token.UserID != user.ID {
		token.UserID = user.ID
		DB.Save(&token)
	}

	return c.JSON(fiber.Map{"message": "Token updated"})
}

// TokensForUsers returns the device tokens registered for the given users.
func TokensForUsers(db *gorm.DB, userIDs []uint) ([]FCMToken, error) {
	var tokens []FCMToken
	if err := db.Where("user_id IN ?", userIDs).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}
