package repository

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// ProductRepository catálogo de SKUs por comerciante (solo para snapshots).
type ProductRepository interface {
	Upsert(ctx context.Context, p *entity.Product) error
	GetBySKU(ctx context.Context, merchantID, sku string) (*entity.Product, error)
}
