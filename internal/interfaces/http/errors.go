package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/pkg/jwt"
)

// errorStatus asocia cada error de dominio con su status y código HTTP.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrOverRelease, fiber.StatusConflict, "OVER_RELEASE"},
	{domain.ErrOverShip, fiber.StatusConflict, "OVER_SHIP"},
	{domain.ErrOverAllocation, fiber.StatusConflict, "OVER_ALLOCATION"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrSyncFailure, fiber.StatusBadGateway, "SYNC_FAILURE"},
}

// writeError responde con el status que corresponde al error de dominio; el resto es 500.
func writeError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// actorMerchant comerciante que ejecuta la acción; vacío para admin (plataforma) y WMS.
func actorMerchant(c *fiber.Ctx) string {
	if GetRole(c) == jwt.RoleMerchant {
		return GetMerchantID(c)
	}
	return ""
}

// pageParams lee limit/offset del query string con los valores por defecto de dto.PageRequest.
func pageParams(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	if p.Limit > 200 {
		p.Limit = 200
	}
	return p
}

func listResponse[T any](items []T, p dto.PageRequest) fiber.Map {
	return fiber.Map{"items": items, "page": dto.PageResponse{Limit: p.Limit, Offset: p.Offset}}
}
