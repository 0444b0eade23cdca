package inbound_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/apptest"
	"github.com/jhoicas/marketplace-ledger/internal/application/inbound"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func cost(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// arrived crea, envía, despacha y marca llegada de un documento.
func arrived(t *testing.T, env *apptest.Env, items ...inbound.ItemInput) *entity.InboundOrder {
	t.Helper()
	ctx := context.Background()
	o, err := env.Inbound.Create(ctx, inbound.CreateInput{MerchantID: "m1", WarehouseID: "wh-P1", Items: items})
	require.NoError(t, err)
	assert.Regexp(t, `^IB20250102\d{6}$`, o.InboundNo)
	_, err = env.Inbound.Submit(ctx, "m1", o.ID)
	require.NoError(t, err)
	_, err = env.Inbound.Ship(ctx, "m1", o.ID, "TCC", "G-1")
	require.NoError(t, err)
	o, err = env.Inbound.Arrive(ctx, o.ID)
	require.NoError(t, err)
	return o
}

func TestInbound_PartialReceiptWithDamage(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")

	o := arrived(t, env, inbound.ItemInput{SKU: "SKU-1", ExpectedQuantity: 100, UnitCost: cost("10")})
	recID := o.Items[0].InventoryRecordID
	require.NotEmpty(t, recID)
	assert.Equal(t, int64(100), env.Record(t, recID).QuantityInTransit)

	o, exceptions, err := env.Inbound.ConfirmItem(ctx, o.ID, inbound.ConfirmItemInput{ItemID: o.Items[0].ID, Received: 90, Damaged: 5, Remark: "caja rota"})
	require.NoError(t, err)
	assert.Equal(t, entity.InboundReceiving, o.Status)
	assert.Equal(t, entity.InboundItemPartial, o.Items[0].Status)

	rec := env.Record(t, recID)
	assert.Equal(t, int64(5), rec.QuantityInTransit)
	assert.Equal(t, int64(90), rec.QuantityAvailable)
	assert.Equal(t, int64(5), rec.QuantityDamaged)
	assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(10)))

	require.Len(t, exceptions, 2)
	types := map[entity.ExceptionType]int64{}
	for _, e := range exceptions {
		types[e.Type] = e.Quantity
		assert.Equal(t, entity.ExceptionPending, e.Status)
		assert.Regexp(t, `^EX20250102\d{6}$`, e.ExceptionNo)
	}
	assert.Equal(t, map[entity.ExceptionType]int64{entity.ExceptionQuantityShort: 5, entity.ExceptionDamaged: 5}, types)

	o, err = env.Inbound.Complete(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboundPartialCompleted, o.Status)

	txs, err := env.Ledger.ListTransactions(ctx, recID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3) // en tránsito, costo, entrada
	assert.Equal(t, entity.TransactionInbound, txs[0].Type)
}

func TestInbound_ExactReceiptCompletesAndAveragesCost(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")

	first := arrived(t, env, inbound.ItemInput{SKU: "SKU-1", ExpectedQuantity: 90, UnitCost: cost("10")})
	_, _, err := env.Inbound.ConfirmItem(ctx, first.ID, inbound.ConfirmItemInput{ItemID: first.Items[0].ID, Received: 90})
	require.NoError(t, err)
	done, err := env.Inbound.Complete(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboundCompleted, done.Status)

	second := arrived(t, env, inbound.ItemInput{SKU: "SKU-1", ExpectedQuantity: 10})
	o, exceptions, err := env.Inbound.ConfirmItem(ctx, second.ID, inbound.ConfirmItemInput{ItemID: second.Items[0].ID, Received: 10, UnitCost: cost("20")})
	require.NoError(t, err)
	assert.Empty(t, exceptions)
	assert.Equal(t, entity.InboundItemReceived, o.Items[0].Status)

	rec := env.Record(t, o.Items[0].InventoryRecordID)
	assert.Equal(t, first.Items[0].InventoryRecordID, rec.ID)
	assert.Equal(t, int64(100), rec.QuantityAvailable)
	// (90×10 + 10×20) / 100
	assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(11)), rec.AverageCost.String())
}

func TestInbound_CompleteMarksUnconfirmedMissing(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")

	o := arrived(t, env,
		inbound.ItemInput{SKU: "SKU-1", ExpectedQuantity: 5},
		inbound.ItemInput{SKU: "SKU-2", ExpectedQuantity: 7},
	)
	_, _, err := env.Inbound.ConfirmBySKU(ctx, o.InboundNo, "SKU-1", 6, 0, "")
	require.NoError(t, err)

	o, err = env.Inbound.Complete(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboundPartialCompleted, o.Status)
	statuses := map[string]entity.InboundItemStatus{}
	for _, it := range o.Items {
		statuses[it.SKU] = it.Status
	}
	assert.Equal(t, entity.InboundItemOver, statuses["SKU-1"])
	assert.Equal(t, entity.InboundItemMissing, statuses["SKU-2"])

	exceptions, err := env.Inbound.ListExceptions(ctx, o.ID, "", 0, 0)
	require.NoError(t, err)
	types := map[entity.ExceptionType]int64{}
	for _, e := range exceptions {
		types[e.Type] = e.Quantity
	}
	assert.Equal(t, int64(1), types[entity.ExceptionQuantityOver])
	assert.Equal(t, int64(7), types[entity.ExceptionQuantityShort])
}

func TestInbound_CancelAfterShipKeepsInTransit(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")

	o := arrived(t, env, inbound.ItemInput{SKU: "SKU-1", ExpectedQuantity: 4})
	o, err := env.Inbound.Cancel(ctx, "m1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InboundCancelled, o.Status)
	assert.Equal(t, int64(4), env.Record(t, o.Items[0].InventoryRecordID).QuantityInTransit)

	_, err = env.Inbound.Cancel(ctx, "m1", o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInbound_Validation(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M2", entity.WarehouseMerchant, "m2")

	_, err := env.Inbound.Create(ctx, inbound.CreateInput{MerchantID: "m1", WarehouseID: "wh-M2", Items: []inbound.ItemInput{{SKU: "A", ExpectedQuantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.Inbound.Create(ctx, inbound.CreateInput{MerchantID: "m1", WarehouseID: "wh-none", Items: []inbound.ItemInput{{SKU: "A", ExpectedQuantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.Inbound.Create(ctx, inbound.CreateInput{MerchantID: "m2", WarehouseID: "wh-M2", Items: []inbound.ItemInput{{SKU: "A", ExpectedQuantity: 1}, {SKU: "A", ExpectedQuantity: 2}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	o, err := env.Inbound.Create(ctx, inbound.CreateInput{MerchantID: "m2", WarehouseID: "wh-M2", Items: []inbound.ItemInput{{SKU: "A", ExpectedQuantity: 1}}})
	require.NoError(t, err)
	_, err = env.Inbound.Get(ctx, "m1", o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.Inbound.Ship(ctx, "m2", o.ID, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "draft no se despacha sin enviar")
}

func TestInboundException_Lifecycle(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")
	o := arrived(t, env, inbound.ItemInput{SKU: "SKU-1", ExpectedQuantity: 4})

	e, err := env.Inbound.CreateException(ctx, inbound.CreateExceptionInput{
		InboundOrderID: o.ID, InboundOrderItemID: o.Items[0].ID, Type: entity.ExceptionPackaging, Quantity: 1, Description: "empaque abierto",
	})
	require.NoError(t, err)

	_, err = env.Inbound.ResolveException(ctx, e.ID, entity.ResolutionAccept, "ok")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.Inbound.StartException(ctx, e.ID)
	require.NoError(t, err)
	e, err = env.Inbound.ResolveException(ctx, e.ID, entity.ResolutionClaim, "reclamo a transportadora")
	require.NoError(t, err)
	assert.Equal(t, entity.ExceptionResolved, e.Status)
	assert.Equal(t, entity.ResolutionClaim, e.Resolution)
	require.NotNil(t, e.ResolvedAt)

	_, err = env.Inbound.CloseException(ctx, e.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.Inbound.CreateException(ctx, inbound.CreateExceptionInput{InboundOrderID: o.ID, Type: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// la novedad nunca bloquea el libro
	_, _, err = env.Inbound.ConfirmItem(ctx, o.ID, inbound.ConfirmItemInput{ItemID: o.Items[0].ID, Received: 4})
	require.NoError(t, err)
}
