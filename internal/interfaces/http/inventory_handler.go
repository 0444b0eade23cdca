package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

// InventoryHandler consultas del libro de inventario (protegido).
// Los baldes solo cambian por documentos; aquí no hay movimientos manuales.
type InventoryHandler struct {
	ledger *inventory.LedgerUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// record lee el registro y verifica que sea visible para el comerciante del token.
func (h *InventoryHandler) record(c *fiber.Ctx) (*entity.InventoryRecord, error) {
	rec, err := h.ledger.GetRecord(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if m := actorMerchant(c); m != "" && rec.MerchantID != m {
		return nil, domain.ErrForbidden
	}
	return rec, nil
}

// ListRecords godoc
// @Summary      Listar registros de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        merchant_id   query  string  false  "Solo admin; los comerciantes ven los suyos"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        sku           query  string  false  "Filtrar por SKU"
// @Success      200  {array}   dto.InventoryRecordResponse
// @Router       /api/inventory/records [get]
func (h *InventoryHandler) ListRecords(c *fiber.Ctx) error {
	p := pageParams(c)
	recs, err := h.ledger.ListRecords(c.UserContext(), repository.RecordFilter{
		MerchantID:  merchantScope(c),
		WarehouseID: c.Query("warehouse_id"),
		SKU:         c.Query("sku"),
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToInventoryRecordList(recs), p))
}

// GetRecord godoc
// @Summary      Obtener registro de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.InventoryRecordResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/records/{id} [get]
func (h *InventoryHandler) GetRecord(c *fiber.Ctx) error {
	rec, err := h.record(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInventoryRecordResponse(rec))
}

// ListTransactions filas del libro de un registro, más recientes primero.
func (h *InventoryHandler) ListTransactions(c *fiber.Ctx) error {
	rec, err := h.record(c)
	if err != nil {
		return writeError(c, err)
	}
	p := pageParams(c)
	txs, err := h.ledger.ListTransactions(c.UserContext(), rec.ID, p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToTransactionList(txs), p))
}

// SetSafetyStock godoc
// @Summary      Fijar o quitar el stock de seguridad
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del registro"
// @Param        body  body  dto.SetSafetyStockRequest  true  "safety_stock (null lo quita)"
// @Success      200   {object}  dto.InventoryRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/records/{id}/safety-stock [put]
func (h *InventoryHandler) SetSafetyStock(c *fiber.Ctx) error {
	var in dto.SetSafetyStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.ledger.SetSafetyStock(c.UserContext(), actorMerchant(c), c.Params("id"), in.SafetyStock)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInventoryRecordResponse(rec))
}

// GetReplenishmentList godoc
// @Summary      Registros bajo stock de seguridad
// @Description  Devuelve los registros con disponible ≤ stock de seguridad y la cantidad sugerida
//
//	a reponer, descontando lo que ya viene en tránsito.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.ledger.LowStock(c.UserContext(), merchantScope(c), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": dto.ToReplenishmentList(list),
	})
}
