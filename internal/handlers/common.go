package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/gatewatch/internal/services"
)

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// respondResult renders a business-rule outcome. Refusals stay HTTP 200
// with success=false; callers branch on the status field.
func respondResult(c *fiber.Ctx, res services.OpResult) error {
	return c.JSON(fiber.Map{
		"success": !res.Failed(),
		"status":  res.Status,
		"message": res.Message,
	})
}
