package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/usecase"
)

// ProductHandler ficha de catálogo de los SKUs del comerciante (protegido).
type ProductHandler struct {
	uc *usecase.ProductUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *usecase.ProductUseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Upsert godoc
// @Summary      Crear o actualizar ficha de producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.UpsertProductRequest  true  "sku, name, image_url"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/products [put]
func (h *ProductHandler) Upsert(c *fiber.Ctx) error {
	var in dto.UpsertProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Upsert(c.UserContext(), merchantScope(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetBySKU obtiene la ficha por SKU.
func (h *ProductHandler) GetBySKU(c *fiber.Ctx) error {
	out, err := h.uc.GetBySKU(c.UserContext(), merchantScope(c), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
