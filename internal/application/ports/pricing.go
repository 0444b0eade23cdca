package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// Settlement precio unitario de liquidación y comisión total para una línea.
type Settlement struct {
	UnitPrice  decimal.Decimal
	Commission decimal.Decimal
}

// PricingEvaluator resuelve la liquidación de vender quantity unidades de un listing.
type PricingEvaluator interface {
	Evaluate(ctx context.Context, listing *entity.Listing, quantity int64) (Settlement, error)
}
