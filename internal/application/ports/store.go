package ports

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción (o al pool fuera de ella).
type Repos struct {
	Records         repository.InventoryRecordRepository
	Transactions    repository.InventoryTransactionRepository
	Listings        repository.ListingRepository
	ChannelProducts repository.ChannelProductRepository
	Orders          repository.OrderRepository
	Fulfillments    repository.FulfillmentRepository
	Outbound        repository.OutboundOrderRepository
	Inbound         repository.InboundOrderRepository
	Exceptions      repository.InboundExceptionRepository
	Warehouses      repository.WarehouseRepository
	Products        repository.ProductRepository
	Sequences       repository.DocumentSequenceRepository
}

// TxRunner ejecuta fn dentro de una transacción, pasando repos atados a ella.
// Si fn retorna error se hace rollback; los bloqueos tomados con *ForUpdate se liberan al terminar.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// Store es la persistencia completa: transacciones más repos de lectura fuera de tx.
type Store interface {
	TxRunner
	Repos() Repos
}
