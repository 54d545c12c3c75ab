package Controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
	"github.com/wenjyue84/MakanManager-sub001/Workflow"
)

// engineError maps engine error kinds onto HTTP statuses. Policy violations
// surface directly; only unexpected store failures become a 500.
func engineError(ctx *fiber.Ctx, err error) error {
	var (
		validation *Workflow.ValidationError
		transition *Workflow.StateTransitionError
		authz      *Workflow.NotAuthorizedError
		notFound   *Workflow.NotFoundError
		conflict   *Workflow.ConcurrentModificationError
		exceeded   *Budget.ExceededError
	)
	switch {
	case errors.As(err, &validation):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Error()})
	case errors.As(err, &transition):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": transition.Error()})
	case errors.As(err, &authz):
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": authz.Error()})
	case errors.As(err, &notFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound.Error()})
	case errors.As(err, &conflict):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": conflict.Error(), "retryable": true})
	case errors.As(err, &exceeded):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     exceeded.Error(),
			"remaining": exceeded.Remaining,
		})
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
