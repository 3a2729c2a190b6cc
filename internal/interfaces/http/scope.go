package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/pkg/jwt"
)

// scopeBranch resuelve la sucursal de la operación. Vacía toma la del token; un usuario
// no administrador con sucursal asignada solo opera sobre ella.
func scopeBranch(c *fiber.Ctx, branchID string) (string, error) {
	assigned := GetBranchID(c)
	if branchID == "" {
		branchID = assigned
	}
	if branchID == "" {
		return "", fmt.Errorf("%w: sucursal requerida", domain.ErrInvalidInput)
	}
	if GetRole(c) != jwt.RoleAdmin && assigned != "" && assigned != branchID {
		return "", domain.ErrForbidden
	}
	return branchID, nil
}

// scopeFilter resuelve la sucursal de un filtro de listado. Un administrador, o un usuario
// sin sucursal asignada, puede omitirla y ver todas; los demás quedan fijos a la suya.
func scopeFilter(c *fiber.Ctx, branchID string) (string, error) {
	if GetRole(c) == jwt.RoleAdmin || GetBranchID(c) == "" {
		return branchID, nil
	}
	return scopeBranch(c, branchID)
}
