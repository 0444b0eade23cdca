package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/marketplace-ledger/internal/application/allocation"
	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/fulfillment"
	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

// OrderIngester recibe una orden de canal y la asigna si llegó pagada. Lo implementa *application.Services.
type OrderIngester interface {
	IngestAndAllocate(ctx context.Context, in order.IngestInput) (*entity.Order, bool, error)
}

// OrderHandler órdenes de canal y sus fulfillments (protegido).
type OrderHandler struct {
	ingester     OrderIngester
	orders       *order.UseCase
	router       *allocation.Router
	fulfillments *fulfillment.UseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(ingester OrderIngester, orders *order.UseCase, router *allocation.Router, fulfillments *fulfillment.UseCase) *OrderHandler {
	return &OrderHandler{ingester: ingester, orders: orders, router: router, fulfillments: fulfillments}
}

// Ingest godoc
// @Summary      Recibir orden de un canal de venta
// @Description  Idempotente por (channel_id, external_order_no). Si llega pagada se asigna de inmediato;
//
//	un fallo de asignación deja la orden en allocation_failed sin rechazar la recepción.
//
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IngestOrderRequest  true  "Orden del canal"
// @Success      201   {object}  dto.OrderResponse  "orden nueva"
// @Success      200   {object}  dto.OrderResponse  "orden ya recibida"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse  "producto de canal desconocido"
// @Router       /api/orders [post]
func (h *OrderHandler) Ingest(c *fiber.Ctx) error {
	var in dto.IngestOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	items := make([]order.IngestItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, order.IngestItem{
			ChannelProductID: it.ChannelProductID,
			SKU:              it.SKU,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
		})
	}
	o, created, err := h.ingester.IngestAndAllocate(c.UserContext(), order.IngestInput{
		ChannelID:       in.ChannelID,
		ExternalOrderNo: in.ExternalOrderNo,
		Paid:            in.Paid,
		Receiver:        in.Receiver,
		Items:           items,
	})
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.ToOrderResponse(o))
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	p := pageParams(c)
	list, err := h.orders.List(c.UserContext(), repository.OrderFilter{
		ChannelID: c.Query("channel_id"),
		Status:    entity.OrderStatus(c.Query("status")),
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToOrderList(list), p))
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// MarkPaid registra el pago y dispara la asignación; un fallo de asignación queda en la orden.
func (h *OrderHandler) MarkPaid(c *fiber.Ctx) error {
	o, err := h.orders.MarkPaid(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if o.Status == entity.OrderPending {
		if allocated, aerr := h.router.Allocate(c.UserContext(), o.ID); allocated != nil {
			o = allocated
		} else if aerr != nil {
			return writeError(c, aerr)
		}
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// Allocate godoc
// @Summary      Asignar (o reintentar) una orden
// @Description  Procesa solo lo pendiente. Sin stock suficiente la orden queda en allocation_failed
//
//	con el motivo; la respuesta sigue siendo 200 con el estado actual.
//
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse  "INVALID_TRANSITION"
// @Router       /api/orders/{id}/allocate [post]
func (h *OrderHandler) Allocate(c *fiber.Ctx) error {
	o, err := h.router.Allocate(c.UserContext(), c.Params("id"))
	if o != nil {
		return c.JSON(dto.ToOrderResponse(o))
	}
	return writeError(c, err)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequest
	_ = c.BodyParser(&in)
	o, err := h.orders.Cancel(c.UserContext(), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// ListFulfillments fulfillments de una orden; un comerciante solo ve los suyos.
func (h *OrderHandler) ListFulfillments(c *fiber.Ctx) error {
	fs, err := h.fulfillments.ListByOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if m := actorMerchant(c); m != "" {
		own := fs[:0]
		for _, f := range fs {
			if f.OwnerKey == m {
				own = append(own, f)
			}
		}
		fs = own
	}
	return c.JSON(dto.ToFulfillmentList(fs))
}

// ── Fulfillments ──────────────────────────────────────────────────────────────

func (h *OrderHandler) GetFulfillment(c *fiber.Ctx) error {
	f, err := h.fulfillments.Get(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToFulfillmentResponse(f))
}

func (h *OrderHandler) StartFulfillment(c *fiber.Ctx) error {
	f, err := h.fulfillments.StartProcessing(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToFulfillmentResponse(f))
}

// ShipFulfillment despacho de un fulfillment de bodega de comerciante.
func (h *OrderHandler) ShipFulfillment(c *fiber.Ctx) error {
	var in dto.ShipRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	f, err := h.fulfillments.Ship(c.UserContext(), actorMerchant(c), c.Params("id"), in.Carrier, in.TrackingNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToFulfillmentResponse(f))
}

func (h *OrderHandler) DeliverFulfillment(c *fiber.Ctx) error {
	f, err := h.fulfillments.MarkDelivered(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToFulfillmentResponse(f))
}

func (h *OrderHandler) CancelFulfillment(c *fiber.Ctx) error {
	var in dto.CancelRequest
	_ = c.BodyParser(&in)
	f, err := h.fulfillments.Cancel(c.UserContext(), actorMerchant(c), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToFulfillmentResponse(f))
}
