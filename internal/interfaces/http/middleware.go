package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// OperationTimeout limita cada petición: el contexto de usuario de Fiber recibe un deadline
// que llega hasta la transacción (adquisición de locks incluida).
func OperationTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
