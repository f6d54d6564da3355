package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"eaglearn-be/internal/pkg/crypto"
	"eaglearn-be/pkg/events"
)

// ErrorHandlerMiddleware converts service-layer errors into the JSON
// envelope. Validation errors are 400s, tamper detection is a 409 on the
// affected record, everything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse(verr.Error()))
		}

		if errors.Is(err, crypto.ErrTamperOrCorruption) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse(events.TypeTamperOrCorruption))
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return c.Status(ferr.Code).JSON(ErrorResponse(ferr.Message))
		}

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error()))
	}
}
