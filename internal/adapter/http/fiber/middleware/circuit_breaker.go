package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
)

// CircuitBreaker sheds API traffic while cb is open. Only 5xx responses and
// handler errors count as failures. A nil breaker passes everything through.
func CircuitBreaker(cb *gobreaker.CircuitBreaker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cb == nil {
			return c.Next()
		}

		var handlerErr error
		_, err := cb.Execute(func() (interface{}, error) {
			handlerErr = c.Next()
			if handlerErr != nil {
				return nil, handlerErr
			}
			if c.Response().StatusCode() >= fiber.StatusInternalServerError {
				return nil, fiber.NewError(c.Response().StatusCode())
			}
			return nil, nil
		})

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}

		return handlerErr
	}
}
