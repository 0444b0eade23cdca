package order_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/apptest"
	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

func setup(t *testing.T) (*apptest.Env, *entity.ChannelProduct) {
	t.Helper()
	env := apptest.New(t)
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")
	rec := env.Stock(t, "m1", "wh-P1", "SKU-1", 10)
	return env, env.ChannelProduct(t, "shop", "SKU-1", env.ActiveListing(t, rec))
}

func TestIngest_ResolvesBySKUAndTotals(t *testing.T) {
	env, cp := setup(t)
	ctx := context.Background()

	o, created, err := env.Orders.Ingest(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "A-1",
		Items: []order.IngestItem{
			{SKU: "SKU-1", Quantity: 2, UnitPrice: decimal.RequireFromString("12.345")},
			{ChannelProductID: cp.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entity.OrderPending, o.Status)
	assert.Equal(t, entity.PaymentUnpaid, o.PaymentStatus)
	require.Len(t, o.Items, 2)
	assert.Equal(t, cp.ID, o.Items[0].ChannelProductID)
	assert.Equal(t, "12.35", o.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "29.70", o.TotalAmount.StringFixed(2))

	got, err := env.Orders.GetByExternal(ctx, "shop", "A-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestIngest_Validation(t *testing.T) {
	env, cp := setup(t)
	ctx := context.Background()

	cases := []order.IngestInput{
		{ChannelID: "shop", ExternalOrderNo: " ", Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 1}}},
		{ChannelID: "shop", ExternalOrderNo: "B-1"},
		{ChannelID: "shop", ExternalOrderNo: "B-2", Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 0}}},
		{ChannelID: "shop", ExternalOrderNo: "B-3", Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}},
	}
	for _, in := range cases {
		_, _, err := env.Orders.Ingest(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, in.ExternalOrderNo)
	}

	// producto de otro canal
	_, _, err := env.Orders.Ingest(ctx, order.IngestInput{
		ChannelID: "otro", ExternalOrderNo: "C-1",
		Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := env.Orders.List(ctx, repository.OrderFilter{ChannelID: "shop"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkPaid_ThenAllocate(t *testing.T) {
	env, cp := setup(t)
	ctx := context.Background()

	o, _, err := env.IngestAndAllocate(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "P-1",
		Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(12)}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPending, o.Status, "sin pago no se asigna")

	o, err = env.Orders.MarkPaid(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPaid, o.PaymentStatus)

	o, err = env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocated, o.Status)

	_, err = env.Orders.MarkPaid(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_PendingOrder(t *testing.T) {
	env, cp := setup(t)
	ctx := context.Background()

	o, _, err := env.Orders.Ingest(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "X-1",
		Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(12)}},
	})
	require.NoError(t, err)

	o, err = env.Orders.Cancel(ctx, o.ID, "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, o.Status)
	assert.Equal(t, "cliente desistió", o.CancelReason)

	_, err = env.Orders.Cancel(ctx, o.ID, "otra vez")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
