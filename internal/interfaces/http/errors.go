package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
)

// writeError traduce un error de dominio a status + dto.ErrorResponse.
// Los rechazos con detalle (faltantes, líneas excedidas) viajan en Details.
func writeError(c *fiber.Ctx, err error) error {
	var (
		shortage   *domain.InsufficientStockError
		excess     *domain.ExceededOrderedQuantityError
		transition *domain.InvalidStateTransitionError
		notFound   *domain.NotFoundError
		duplicate  *domain.DuplicateReferenceError
	)
	switch {
	case errors.Is(err, domain.ErrTransferCompensated):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "TRANSFER_COMPENSATED", Message: err.Error()})
	case errors.As(err, &shortage):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente", Details: shortage.Shortages,
		})
	case errors.As(err, &excess):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "EXCEEDED_ORDERED_QUANTITY", Message: "la recepción supera lo ordenado", Details: excess.Items,
		})
	case errors.As(err, &transition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INVALID_STATE_TRANSITION", Message: transition.Error(),
			Details: fiber.Map{"entity": transition.Entity, "from": transition.From, "action": transition.Action},
		})
	case errors.As(err, &duplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_REFERENCE", Message: duplicate.Error()})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: notFound.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrInactive):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "INACTIVE", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: "la operación excedió el tiempo máximo"})
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno en handler")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}
