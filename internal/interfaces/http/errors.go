package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
)

// statusFor traduce la clase de error del dominio a código HTTP.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidArgument:
		return fiber.StatusBadRequest
	case domain.KindPrecondition, domain.KindConflict, domain.KindInsufficientStock:
		return fiber.StatusConflict
	case domain.KindUnauthorized:
		return fiber.StatusForbidden
	case domain.KindCanceled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError responde con el cuerpo de error uniforme. Los errores internos no exponen la causa.
func writeError(c *fiber.Ctx, err error) error {
	de := domain.AsError(err)
	return c.Status(statusFor(de.Kind)).JSON(dto.ErrorResponse{
		Code:    string(de.Kind),
		Message: de.Message,
		Details: de.Details,
	})
}
