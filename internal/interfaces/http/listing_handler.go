package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/listing"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// ListingHandler listings del comerciante y productos de canal (protegido).
type ListingHandler struct {
	uc *listing.UseCase
}

// NewListingHandler construye el handler.
func NewListingHandler(uc *listing.UseCase) *ListingHandler {
	return &ListingHandler{uc: uc}
}

// Create godoc
// @Summary      Crear listing (draft)
// @Tags         listings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateListingRequest  true  "registro, conexión de canal, precio, modo"
// @Success      201   {object}  dto.ListingResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse  "OVER_ALLOCATION"
// @Router       /api/listings [post]
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateListingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	l, err := h.uc.CreateListing(c.UserContext(), listing.CreateListingInput{
		MerchantID:          merchantScope(c),
		ChannelConnectionID: in.ChannelConnectionID,
		InventoryRecordID:   in.InventoryRecordID,
		Price:               in.Price,
		AllocationMode:      entity.AllocationMode(in.AllocationMode),
		AllocatedQuantity:   in.AllocatedQuantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToListingResponse(l))
}

func (h *ListingHandler) List(c *fiber.Ctx) error {
	merchantID := merchantScope(c)
	if merchantID == "" {
		return writeError(c, domain.ErrInvalidInput)
	}
	p := pageParams(c)
	ls, err := h.uc.ListListings(c.UserContext(), merchantID, p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(listResponse(dto.ToListingList(ls), p))
}

func (h *ListingHandler) Get(c *fiber.Ctx) error {
	l, err := h.uc.GetListing(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToListingResponse(l))
}

func (h *ListingHandler) Activate(c *fiber.Ctx) error {
	l, err := h.uc.Activate(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToListingResponse(l))
}

func (h *ListingHandler) Pause(c *fiber.Ctx) error {
	l, err := h.uc.Pause(c.UserContext(), actorMerchant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToListingResponse(l))
}

func (h *ListingHandler) UpdatePrice(c *fiber.Ctx) error {
	var in dto.UpdatePriceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	l, err := h.uc.UpdatePrice(c.UserContext(), actorMerchant(c), c.Params("id"), in.Price)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToListingResponse(l))
}

// UpdateAllocation cambia el modo de asignación o ajusta la cantidad dedicada.
func (h *ListingHandler) UpdateAllocation(c *fiber.Ctx) error {
	var in dto.AllocationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ctx, merchantID, id := c.UserContext(), actorMerchant(c), c.Params("id")
	var (
		l   *entity.Listing
		err error
	)
	switch {
	case in.Delta != 0:
		l, err = h.uc.AdjustAllocatedQuantity(ctx, merchantID, id, in.Delta)
	case entity.AllocationMode(in.Mode) == entity.AllocationDedicated:
		l, err = h.uc.SetDedicated(ctx, merchantID, id, in.AllocatedQuantity)
	case entity.AllocationMode(in.Mode) == entity.AllocationShared:
		l, err = h.uc.SetShared(ctx, merchantID, id)
	default:
		err = domain.ErrInvalidInput
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToListingResponse(l))
}

// ── Productos de canal ────────────────────────────────────────────────────────

// CreateChannelProduct godoc
// @Summary      Crear producto de canal
// @Tags         channel-products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateChannelProductRequest  true  "canal, SKU, modo de stock"
// @Success      201   {object}  dto.ChannelProductResponse
// @Router       /api/channel-products [post]
func (h *ListingHandler) CreateChannelProduct(c *fiber.Ctx) error {
	var in dto.CreateChannelProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	cp, err := h.uc.CreateChannelProduct(c.UserContext(), listing.CreateChannelProductInput{
		ChannelID:     in.ChannelID,
		SKU:           in.SKU,
		Title:         in.Title,
		Price:         in.Price,
		StockMode:     entity.StockMode(in.StockMode),
		FixedQuantity: in.FixedQuantity,
		SafetyBuffer:  in.SafetyBuffer,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToChannelProductResponse(cp))
}

func (h *ListingHandler) ListChannelProducts(c *fiber.Ctx) error {
	p := pageParams(c)
	cps, err := h.uc.ListChannelProducts(c.UserContext(), c.Query("channel_id"), p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.ChannelProductResponse, 0, len(cps))
	for _, cp := range cps {
		items = append(items, *dto.ToChannelProductResponse(cp))
	}
	return c.JSON(listResponse(items, p))
}

func (h *ListingHandler) GetChannelProduct(c *fiber.Ctx) error {
	cp, err := h.uc.GetChannelProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToChannelProductResponse(cp))
}

// UpdateStockSettings cambia modo, cantidad fija, colchón o precio y recalcula.
func (h *ListingHandler) UpdateStockSettings(c *fiber.Ctx) error {
	var in dto.StockSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	s := listing.StockSettings{FixedQuantity: in.FixedQuantity, SafetyBuffer: in.SafetyBuffer, Price: in.Price}
	if in.StockMode != nil {
		m := entity.StockMode(*in.StockMode)
		s.StockMode = &m
	}
	cp, err := h.uc.UpdateStockSettings(c.UserContext(), c.Params("id"), s)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToChannelProductResponse(cp))
}

func (h *ListingHandler) AddSource(c *fiber.Ctx) error {
	var in dto.AddSourceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	cp, err := h.uc.AddSource(c.UserContext(), c.Params("id"), in.ListingID, in.Priority)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToChannelProductResponse(cp))
}

func (h *ListingHandler) UpdateSource(c *fiber.Ctx) error {
	var in dto.UpdateSourceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	cp, err := h.uc.UpdateSource(c.UserContext(), c.Params("id"), c.Params("sourceId"), in.Priority, in.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToChannelProductResponse(cp))
}

// Recalculate fuerza el recálculo y la publicación del stock de canal.
func (h *ListingHandler) Recalculate(c *fiber.Ctx) error {
	cp, err := h.uc.Recalculate(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToChannelProductResponse(cp))
}
