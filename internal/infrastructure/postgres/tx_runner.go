package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
)

var _ ports.Store = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los SELECT … FOR UPDATE que tomen los repos se liberan al terminar.
func (r *TxRunner) Run(ctx context.Context, fn func(ports.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(r.repos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repos devuelve repos atados al pool (fuera de transacción).
func (r *TxRunner) Repos() ports.Repos {
	return r.repos(r.pool)
}

func (r *TxRunner) repos(q Querier) ports.Repos {
	return ports.Repos{
		Records:         NewInventoryRecordRepository(q),
		Transactions:    NewInventoryTransactionRepository(q),
		Listings:        NewListingRepository(q),
		ChannelProducts: NewChannelProductRepository(q),
		Orders:          NewOrderRepository(q),
		Fulfillments:    NewFulfillmentRepository(q),
		Outbound:        NewOutboundOrderRepository(q),
		Inbound:         NewInboundOrderRepository(q),
		Exceptions:      NewInboundExceptionRepository(q),
		Warehouses:      NewWarehouseRepository(q),
		Products:        NewProductRepository(q),
		// La numeración va por el pool: como una secuencia, no se devuelve en rollback.
		Sequences: NewDocumentSequenceRepository(r.pool),
	}
}
