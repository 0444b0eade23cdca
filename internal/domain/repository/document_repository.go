package repository

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// OutboundFilter filtros para listar documentos de salida.
type OutboundFilter struct {
	WarehouseID string
	Status      entity.OutboundStatus
	SyncStatus  entity.SyncStatus
	Limit       int
	Offset      int
}

// OutboundOrderRepository puerto de persistencia de documentos de salida.
type OutboundOrderRepository interface {
	Create(ctx context.Context, o *entity.OutboundOrder) error
	GetByID(ctx context.Context, id string) (*entity.OutboundOrder, error)
	GetForUpdate(ctx context.Context, id string) (*entity.OutboundOrder, error)
	GetByFulfillment(ctx context.Context, fulfillmentID string) (*entity.OutboundOrder, error)
	GetByOutboundNo(ctx context.Context, outboundNo string) (*entity.OutboundOrder, error)
	Update(ctx context.Context, o *entity.OutboundOrder) error
	// ListSyncable devuelve documentos pending/failed no cancelados, los de menos intentos primero.
	ListSyncable(ctx context.Context, limit int) ([]*entity.OutboundOrder, error)
	List(ctx context.Context, f OutboundFilter) ([]*entity.OutboundOrder, error)
}

// InboundFilter filtros para listar documentos de entrada.
type InboundFilter struct {
	MerchantID  string
	WarehouseID string
	Status      entity.InboundStatus
	Limit       int
	Offset      int
}

// InboundOrderRepository puerto de persistencia de documentos de entrada.
// Update solo toca la cabecera; las líneas se actualizan con UpdateItem.
type InboundOrderRepository interface {
	Create(ctx context.Context, o *entity.InboundOrder) error
	GetByID(ctx context.Context, id string) (*entity.InboundOrder, error)
	GetForUpdate(ctx context.Context, id string) (*entity.InboundOrder, error)
	GetByInboundNo(ctx context.Context, inboundNo string) (*entity.InboundOrder, error)
	Update(ctx context.Context, o *entity.InboundOrder) error
	UpdateItem(ctx context.Context, it *entity.InboundOrderItem) error
	List(ctx context.Context, f InboundFilter) ([]*entity.InboundOrder, error)
}

// InboundExceptionRepository puerto de persistencia de novedades de recepción.
type InboundExceptionRepository interface {
	Create(ctx context.Context, e *entity.InboundException) error
	GetByID(ctx context.Context, id string) (*entity.InboundException, error)
	GetForUpdate(ctx context.Context, id string) (*entity.InboundException, error)
	Update(ctx context.Context, e *entity.InboundException) error
	ListByInbound(ctx context.Context, inboundOrderID string) ([]*entity.InboundException, error)
	List(ctx context.Context, status entity.ExceptionStatus, limit, offset int) ([]*entity.InboundException, error)
}

// DocumentSequenceRepository contador diario por prefijo para números de documento.
type DocumentSequenceRepository interface {
	Next(ctx context.Context, prefix, day string) (int64, error)
}
