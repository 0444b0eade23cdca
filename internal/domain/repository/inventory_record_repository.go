package repository

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// RecordFilter filtros para listar registros de inventario.
type RecordFilter struct {
	MerchantID   string
	WarehouseID  string
	SKU          string
	LowStockOnly bool
	Limit        int
	Offset       int
}

// InventoryRecordRepository puerto de persistencia de los registros de inventario.
// Los métodos *ForUpdate bloquean la fila hasta el fin de la transacción.
// Los Get devuelven (nil, nil) si no existe.
type InventoryRecordRepository interface {
	Create(ctx context.Context, rec *entity.InventoryRecord) error
	GetByID(ctx context.Context, id string) (*entity.InventoryRecord, error)
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryRecord, error)
	GetByKey(ctx context.Context, key entity.RecordKey) (*entity.InventoryRecord, error)
	GetByKeyForUpdate(ctx context.Context, key entity.RecordKey) (*entity.InventoryRecord, error)
	Update(ctx context.Context, rec *entity.InventoryRecord) error
	List(ctx context.Context, f RecordFilter) ([]*entity.InventoryRecord, error)
}

// InventoryTransactionRepository libro de transacciones; solo inserción.
type InventoryTransactionRepository interface {
	Create(ctx context.Context, tx *entity.InventoryTransaction) error
	ListByRecord(ctx context.Context, recordID string, limit, offset int) ([]*entity.InventoryTransaction, error)
	ListByReference(ctx context.Context, refType, refID string) ([]*entity.InventoryTransaction, error)
}
