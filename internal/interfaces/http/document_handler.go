package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/inbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

// DocumentHandler documentos de salida (WMS) y de entrada con sus novedades.
type DocumentHandler struct {
	outbound *outbound.UseCase
	inbound  *inbound.UseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(out *outbound.UseCase, in *inbound.UseCase) *DocumentHandler {
	return &DocumentHandler{outbound: out, inbound: in}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// ── Salida ────────────────────────────────────────────────────────────────────

func (h *DocumentHandler) ListOutbound(c *fiber.Ctx) error {
	p := pageParams(c)
	list, err := h.outbound.List(c.UserContext(), repository.OutboundFilter{
		WarehouseID: c.Query("warehouse_id"),
		Status:      entity.OutboundStatus(c.Query("status")),
		SyncStatus:  entity.SyncStatus(c.Query("sync_status")),
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToOutboundList(list), p))
}

func (h *DocumentHandler) GetOutbound(c *fiber.Ctx) error {
	o, err := h.outbound.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOutboundResponse(o))
}

// SyncOutbound godoc
// @Summary      Enviar un documento de salida al WMS
// @Description  Solo en sync pending/failed. Un fallo del WMS deja el documento en failed y responde 502.
// @Tags         outbound
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.OutboundResponse
// @Failure      409  {object}  dto.ErrorResponse  "INVALID_TRANSITION"
// @Failure      502  {object}  dto.ErrorResponse  "SYNC_FAILURE"
// @Router       /api/outbound/{id}/sync [post]
func (h *DocumentHandler) SyncOutbound(c *fiber.Ctx) error {
	o, err := h.outbound.Sync(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOutboundResponse(o))
}

// SyncPending barrido manual de documentos pendientes o fallidos.
func (h *DocumentHandler) SyncPending(c *fiber.Ctx) error {
	synced, failed, err := h.outbound.SyncPending(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SyncPendingResponse{Synced: synced, Failed: failed})
}

func (h *DocumentHandler) CancelOutbound(c *fiber.Ctx) error {
	var in dto.CancelRequest
	_ = c.BodyParser(&in)
	o, err := h.outbound.Cancel(c.UserContext(), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOutboundResponse(o))
}

// PackingSlip godoc
// @Summary      Lista de empaque en PDF
// @Tags         outbound
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/outbound/{id}/packing-slip [get]
func (h *DocumentHandler) PackingSlip(c *fiber.Ctx) error {
	pdf, doc, err := h.outbound.PackingSlip(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+doc.OutboundNo+`.pdf"`)
	return c.Send(pdf)
}

// ── Entrada ───────────────────────────────────────────────────────────────────

// CreateInbound godoc
// @Summary      Crear documento de entrada (draft)
// @Tags         inbound
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInboundRequest  true  "Bodega y líneas esperadas"
// @Success      201   {object}  dto.InboundResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inbound [post]
func (h *DocumentHandler) CreateInbound(c *fiber.Ctx) error {
	var in dto.CreateInboundRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	items := make([]inbound.ItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inbound.ItemInput{
			SKU:              it.SKU,
			ExpectedQuantity: it.ExpectedQuantity,
			UnitCost:         nullDecimal(it.UnitCost),
		})
	}
	o, err := h.inbound.Create(c.UserContext(), inbound.CreateInput{
		MerchantID:        merchantScope(c),
		WarehouseID:       in.WarehouseID,
		ExpectedArrivalAt: in.ExpectedArrivalAt,
		Remark:            in.Remark,
		Items:             items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToInboundResponse(o))
}

func (h *DocumentHandler) ListInbound(c *fiber.Ctx) error {
	p := pageParams(c)
	list, err := h.inbound.List(c.UserContext(), repository.InboundFilter{
		MerchantID:  merchantScope(c),
		WarehouseID: c.Query("warehouse_id"),
		Status:      entity.InboundStatus(c.Query("status")),
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToInboundList(list), p))
}

func (h *DocumentHandler) GetInbound(c *fiber.Ctx) error {
	o, err := h.inbound.Get(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInboundResponse(o))
}

func (h *DocumentHandler) inboundResult(c *fiber.Ctx, o *entity.InboundOrder, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInboundResponse(o))
}

func (h *DocumentHandler) SubmitInbound(c *fiber.Ctx) error {
	o, err := h.inbound.Submit(c.UserContext(), actorMerchant(c), c.Params("id"))
	return h.inboundResult(c, o, err)
}

// ShipInbound el comerciante despacha la reposición; las unidades quedan en tránsito.
func (h *DocumentHandler) ShipInbound(c *fiber.Ctx) error {
	var in dto.ShipRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	o, err := h.inbound.Ship(c.UserContext(), actorMerchant(c), c.Params("id"), in.Carrier, in.TrackingNumber)
	return h.inboundResult(c, o, err)
}

func (h *DocumentHandler) ArriveInbound(c *fiber.Ctx) error {
	o, err := h.inbound.Arrive(c.UserContext(), c.Params("id"))
	return h.inboundResult(c, o, err)
}

func (h *DocumentHandler) StartReceiving(c *fiber.Ctx) error {
	o, err := h.inbound.StartReceiving(c.UserContext(), c.Params("id"))
	return h.inboundResult(c, o, err)
}

// ConfirmItem godoc
// @Summary      Confirmar la recepción de una línea
// @Description  Mueve en tránsito a disponible y dañado. Las brechas abren novedades que se devuelven junto al documento.
// @Tags         inbound
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string                  true  "ID del documento"
// @Param        itemId  path  string                  true  "ID de la línea"
// @Param        body    body  dto.ConfirmItemRequest  true  "Cantidades recibidas"
// @Success      200     {object}  map[string]interface{}  "inbound + exceptions"
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/inbound/{id}/items/{itemId}/confirm [post]
func (h *DocumentHandler) ConfirmItem(c *fiber.Ctx) error {
	var in dto.ConfirmItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	o, exs, err := h.inbound.ConfirmItem(c.UserContext(), c.Params("id"), inbound.ConfirmItemInput{
		ItemID:   c.Params("itemId"),
		Received: in.Received,
		Damaged:  in.Damaged,
		Remark:   in.Remark,
		UnitCost: nullDecimal(in.UnitCost),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"inbound": dto.ToInboundResponse(o), "exceptions": dto.ToExceptionList(exs)})
}

func (h *DocumentHandler) CompleteInbound(c *fiber.Ctx) error {
	o, err := h.inbound.Complete(c.UserContext(), c.Params("id"))
	return h.inboundResult(c, o, err)
}

func (h *DocumentHandler) CancelInbound(c *fiber.Ctx) error {
	o, err := h.inbound.Cancel(c.UserContext(), actorMerchant(c), c.Params("id"))
	return h.inboundResult(c, o, err)
}

// ── Novedades ─────────────────────────────────────────────────────────────────

func (h *DocumentHandler) exceptionResult(c *fiber.Ctx, e *entity.InboundException, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToExceptionResponse(e))
}

func (h *DocumentHandler) CreateException(c *fiber.Ctx) error {
	var in dto.CreateExceptionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.inbound.CreateException(c.UserContext(), inbound.CreateExceptionInput{
		InboundOrderID:     in.InboundOrderID,
		InboundOrderItemID: in.InboundOrderItemID,
		Type:               entity.ExceptionType(in.Type),
		Quantity:           in.Quantity,
		Description:        in.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToExceptionResponse(e))
}

func (h *DocumentHandler) ListExceptions(c *fiber.Ctx) error {
	p := pageParams(c)
	list, err := h.inbound.ListExceptions(c.UserContext(), c.Query("inbound_order_id"),
		entity.ExceptionStatus(c.Query("status")), p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToExceptionList(list), p))
}

func (h *DocumentHandler) GetException(c *fiber.Ctx) error {
	e, err := h.inbound.GetException(c.UserContext(), c.Params("id"))
	return h.exceptionResult(c, e, err)
}

func (h *DocumentHandler) StartException(c *fiber.Ctx) error {
	e, err := h.inbound.StartException(c.UserContext(), c.Params("id"))
	return h.exceptionResult(c, e, err)
}

func (h *DocumentHandler) ResolveException(c *fiber.Ctx) error {
	var in dto.ResolveExceptionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.inbound.ResolveException(c.UserContext(), c.Params("id"), entity.Resolution(in.Resolution), in.Note)
	return h.exceptionResult(c, e, err)
}

func (h *DocumentHandler) CloseException(c *fiber.Ctx) error {
	var in dto.ResolveExceptionRequest
	_ = c.BodyParser(&in)
	e, err := h.inbound.CloseException(c.UserContext(), c.Params("id"), in.Note)
	return h.exceptionResult(c, e, err)
}
