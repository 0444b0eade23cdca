package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/inbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/wms"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
)

// WMSCallbackHandler recibe los callbacks firmados del WMS. No usa JWT: la firma del cuerpo autentica.
type WMSCallbackHandler struct {
	signer   *wms.Signer
	outbound *outbound.UseCase
	inbound  *inbound.UseCase
	log      *logger.Logger
}

// NewWMSCallbackHandler construye el handler.
func NewWMSCallbackHandler(signer *wms.Signer, out *outbound.UseCase, in *inbound.UseCase, log *logger.Logger) *WMSCallbackHandler {
	return &WMSCallbackHandler{signer: signer, outbound: out, inbound: in, log: log.Named("wms-callback")}
}

// Handle godoc
// @Summary      Callback del WMS
// @Description  Cuerpo XML <Callback type="outbound|inbound">, firmado en la cabecera X-WMS-Signature
//
//	(BLAKE2b-256 con llave sobre la forma canónica). Reprocesar el mismo callback no cambia nada.
//
// @Tags         wms
// @Accept       xml
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse  "BAD_SIGNATURE"
// @Router       /api/wms/callbacks [post]
func (h *WMSCallbackHandler) Handle(c *fiber.Ctx) error {
	body := c.Body()
	if err := h.signer.Verify(body, c.Get(wms.SignatureHeader)); err != nil {
		if errors.Is(err, wms.ErrBadSignature) {
			h.log.Warn().Str("ip", c.IP()).Msg("callback con firma inválida")
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "BAD_SIGNATURE", Message: err.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	}
	cb, err := wms.ParseCallback(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	}

	switch cb.Kind {
	case wms.CallbackOutbound:
		o, err := h.outbound.HandleCallback(c.UserContext(), outbound.CallbackInput{
			OutboundNo:     cb.OutboundNo,
			ExternalID:     cb.ExternalID,
			Status:         cb.Status,
			Carrier:        cb.Carrier,
			TrackingNumber: cb.TrackingNumber,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"outbound": dto.ToOutboundResponse(o)})
	default:
		o, exs, err := h.inbound.ConfirmBySKU(c.UserContext(), cb.InboundNo, cb.SKU, cb.Received, cb.Damaged, cb.Remark)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"inbound": dto.ToInboundResponse(o), "exceptions": dto.ToExceptionList(exs)})
	}
}
