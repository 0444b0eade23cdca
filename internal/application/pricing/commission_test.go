package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func TestCommissionEvaluator_Evaluate(t *testing.T) {
	e := NewCommissionEvaluator(decimal.RequireFromString("0.12"))
	l := &entity.Listing{Price: decimal.RequireFromString("19.99")}

	s, err := e.Evaluate(context.Background(), l, 3)
	require.NoError(t, err)
	assert.True(t, s.UnitPrice.Equal(decimal.RequireFromString("19.99")))
	// 59.97 × 0.12 = 7.1964
	assert.True(t, s.Commission.Equal(decimal.RequireFromString("7.20")), s.Commission.String())
}

func TestCommissionEvaluator_Invalid(t *testing.T) {
	e := NewCommissionEvaluator(decimal.RequireFromString("-1"))
	_, err := e.Evaluate(context.Background(), nil, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := e.Evaluate(context.Background(), &entity.Listing{Price: decimal.NewFromInt(10)}, 2)
	require.NoError(t, err)
	assert.True(t, s.Commission.IsZero())
}
