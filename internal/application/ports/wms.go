package ports

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// WMSClient puerto hacia el WMS externo de las bodegas de plataforma.
// SubmitOutbound es I/O bloqueante; nunca se invoca con bloqueos de inventario tomados.
type WMSClient interface {
	SubmitOutbound(ctx context.Context, doc *entity.OutboundOrder) (externalID string, err error)
}

// PackingSlipGenerator genera el PDF de la guía de empaque de un documento de salida.
type PackingSlipGenerator interface {
	PackingSlip(doc *entity.OutboundOrder, warehouse *entity.Warehouse) ([]byte, error)
}
