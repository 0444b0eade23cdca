package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

var _ ports.PricingEvaluator = (*CommissionEvaluator)(nil)

// CommissionEvaluator liquida al precio del listing con una comisión plana sobre el total de la línea.
type CommissionEvaluator struct {
	rate decimal.Decimal
}

// NewCommissionEvaluator rate es una fracción (0.12 = 12%).
func NewCommissionEvaluator(rate decimal.Decimal) *CommissionEvaluator {
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return &CommissionEvaluator{rate: rate}
}

// Evaluate precio unitario = precio del listing; comisión = precio × cantidad × tasa, a 2 decimales.
func (e *CommissionEvaluator) Evaluate(_ context.Context, listing *entity.Listing, quantity int64) (ports.Settlement, error) {
	if listing == nil || quantity <= 0 {
		return ports.Settlement{}, domain.ErrInvalidInput
	}
	unit := listing.Price.Round(2)
	commission := unit.Mul(decimal.NewFromInt(quantity)).Mul(e.rate).Round(2)
	return ports.Settlement{UnitPrice: unit, Commission: commission}, nil
}
