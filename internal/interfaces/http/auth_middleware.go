package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/pkg/jwt"
)

// Locals keys para el actor autenticado en Fiber.
const (
	LocalUserID         = "user_id"
	LocalOrganizationID = "organization_id"
	LocalRequestID      = "requestid" // clave por defecto del middleware requestid
)

// AuthMiddleware valida el Bearer Token JWT y guarda UserID y OrganizationID en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		userID, organizationID, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalOrganizationID, organizationID)
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (0 si no pasó por AuthMiddleware).
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalUserID).(int64)
	return id
}

// GetOrganizationID devuelve la organización del token (0 = todas).
func GetOrganizationID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalOrganizationID).(int64)
	return id
}

// GetRequestID devuelve el identificador de petición asignado por el middleware requestid.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}

// GetActor arma el actor de la petición a partir del token.
func GetActor(c *fiber.Ctx) domain.Actor {
	return domain.Actor{
		UserID:         GetUserID(c),
		OrganizationID: GetOrganizationID(c),
		RequestID:      GetRequestID(c),
	}
}
