package repository

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// OrderFilter filtros para listar órdenes.
type OrderFilter struct {
	ChannelID string
	Status    entity.OrderStatus
	Limit     int
	Offset    int
}

// OrderRepository puerto de persistencia de órdenes. Update reescribe cabecera y líneas.
type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	GetByExternal(ctx context.Context, channelID, externalOrderNo string) (*entity.Order, error)
	Update(ctx context.Context, o *entity.Order) error
	List(ctx context.Context, f OrderFilter) ([]*entity.Order, error)
}

// FulfillmentRepository puerto de persistencia de fulfillments.
type FulfillmentRepository interface {
	Create(ctx context.Context, f *entity.Fulfillment) error
	AddItem(ctx context.Context, it *entity.FulfillmentItem) error
	GetByID(ctx context.Context, id string) (*entity.Fulfillment, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Fulfillment, error)
	// FindOpenByKey busca el fulfillment pendiente de la orden para (bodega, dueño).
	FindOpenByKey(ctx context.Context, orderID, warehouseID, ownerKey string) (*entity.Fulfillment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Fulfillment, error)
	Update(ctx context.Context, f *entity.Fulfillment) error
}
