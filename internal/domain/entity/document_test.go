package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

func TestInboundItem_PartialWithDamage(t *testing.T) {
	it := &InboundOrderItem{ID: "it-1", ExpectedQuantity: 100, Status: InboundItemPending}
	require.NoError(t, it.ConfirmReceived(90, 5, "", t0))
	assert.Equal(t, InboundItemPartial, it.Status)
	assert.Equal(t, []Discrepancy{
		{Type: ExceptionQuantityShort, Quantity: 5},
		{Type: ExceptionDamaged, Quantity: 5},
	}, it.Discrepancies())

	assert.ErrorIs(t, it.ConfirmReceived(1, 0, "", t0), domain.ErrInvalidTransition)
}

func TestInboundItem_Outcomes(t *testing.T) {
	cases := []struct {
		name              string
		received, damaged int64
		want              InboundItemStatus
		gaps              int
	}{
		{"exacto", 10, 0, InboundItemReceived, 0},
		{"sobrante", 12, 0, InboundItemOver, 1},
		{"faltante total", 0, 0, InboundItemMissing, 1},
		{"solo dañado", 0, 10, InboundItemPartial, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := &InboundOrderItem{ID: "it", ExpectedQuantity: 10}
			require.NoError(t, it.ConfirmReceived(tc.received, tc.damaged, "", t0))
			assert.Equal(t, tc.want, it.Status)
			assert.Len(t, it.Discrepancies(), tc.gaps)
		})
	}
	it := &InboundOrderItem{ID: "it"}
	assert.ErrorIs(t, it.ConfirmReceived(-1, 0, "", t0), domain.ErrInvalidInput)
}

func TestInboundOrder_Lifecycle(t *testing.T) {
	o := &InboundOrder{ID: "ib-1", Status: InboundDraft}
	assert.ErrorIs(t, o.Submit(t0), domain.ErrInvalidInput)

	o.Items = []InboundOrderItem{
		{ID: "a", ExpectedQuantity: 5, Status: InboundItemPending},
		{ID: "b", ExpectedQuantity: 3, Status: InboundItemPending},
	}
	require.NoError(t, o.Submit(t0))
	assert.ErrorIs(t, o.MarkArrived(t0), domain.ErrInvalidTransition)
	require.NoError(t, o.MarkShipped("Servientrega", "TRK-1", t0))
	require.NoError(t, o.MarkArrived(t0))
	require.NoError(t, o.StartReceiving(t0))
	require.NoError(t, o.StartReceiving(t0))

	a, ok := o.Item("a")
	require.True(t, ok)
	require.NoError(t, a.ConfirmReceived(5, 0, "", t0))
	require.NoError(t, o.Complete(t0))
	assert.Equal(t, InboundPartialCompleted, o.Status)
	assert.Equal(t, InboundItemMissing, o.Items[1].Status)
	assert.ErrorIs(t, o.Cancel(t0), domain.ErrInvalidTransition)
}

func TestInboundOrder_CompleteExact(t *testing.T) {
	o := &InboundOrder{ID: "ib-1", Status: InboundReceiving, Items: []InboundOrderItem{{ID: "a", ExpectedQuantity: 2}}}
	require.NoError(t, o.Items[0].ConfirmReceived(2, 0, "", t0))
	require.NoError(t, o.Complete(t0))
	assert.Equal(t, InboundCompleted, o.Status)
	require.NotNil(t, o.CompletedAt)
}

func TestOutboundOrder_SyncRetries(t *testing.T) {
	o := &OutboundOrder{ID: "ob-1", Status: OutboundPending, SyncStatus: SyncPending}
	for i := 0; i < 3; i++ {
		require.NoError(t, o.MarkSyncFailed("timeout", t0))
	}
	assert.Equal(t, 3, o.SyncAttempts)
	assert.Equal(t, SyncFailed, o.SyncStatus)
	assert.True(t, o.CanSync())

	assert.ErrorIs(t, o.MarkSynced("", t0), domain.ErrInvalidInput)
	require.NoError(t, o.MarkSynced("WMS-9", t0))
	assert.Equal(t, SyncSynced, o.SyncStatus)
	assert.Empty(t, o.SyncError)
	assert.False(t, o.CanSync())
	assert.ErrorIs(t, o.MarkSyncFailed("late", t0), domain.ErrInvalidTransition)

	require.NoError(t, o.MarkCallback(t0))
	require.NoError(t, o.MarkCallback(t0))
	assert.Equal(t, SyncCallback, o.SyncStatus)
}

func TestOutboundOrder_AdvanceAndShip(t *testing.T) {
	f := &Fulfillment{ID: "f-1", Status: FulfillmentPending, Type: FulfillmentPlatformWarehouse}
	o := &OutboundOrder{ID: "ob-1", FulfillmentID: "f-1", Status: OutboundPending, SyncStatus: SyncSynced}

	assert.ErrorIs(t, o.MarkShipped(f, "c", "t", t0), domain.ErrInvalidTransition)
	require.NoError(t, o.AdvanceTo(OutboundPacking, t0))
	assert.NotNil(t, o.PickedAt)
	assert.NotNil(t, o.PackedAt)
	assert.ErrorIs(t, o.Cancel(t0), domain.ErrInvalidTransition)
	assert.ErrorIs(t, o.AdvanceTo(OutboundPicking, t0), domain.ErrInvalidTransition)
	assert.ErrorIs(t, o.AdvanceTo(OutboundShipped, t0), domain.ErrInvalidInput)

	require.NoError(t, o.AdvanceTo(OutboundReady, t0))
	assert.ErrorIs(t, o.MarkShipped(&Fulfillment{ID: "otro"}, "c", "t", t0), domain.ErrInvalidInput)
	require.NoError(t, o.MarkShipped(f, "Coordinadora", "TRK-7", t0))
	assert.Equal(t, OutboundShipped, o.Status)
	assert.Equal(t, FulfillmentShipped, f.Status)
	assert.Equal(t, "TRK-7", f.TrackingNumber)
}

func TestFulfillment_Lifecycle(t *testing.T) {
	f := &Fulfillment{ID: "f-1", Status: FulfillmentPending}
	assert.ErrorIs(t, f.AddItem(FulfillmentItem{Quantity: 0}), domain.ErrInvalidInput)
	require.NoError(t, f.AddItem(FulfillmentItem{ID: "fi-1", Quantity: 3}))
	require.NoError(t, f.AddItem(FulfillmentItem{ID: "fi-2", Quantity: 2}))
	assert.Equal(t, int64(5), f.TotalQuantity())
	assert.Equal(t, "f-1", f.Items[0].FulfillmentID)

	require.NoError(t, f.StartProcessing(t0))
	assert.ErrorIs(t, f.AddItem(FulfillmentItem{Quantity: 1}), domain.ErrInvalidTransition)
	assert.ErrorIs(t, f.MarkDelivered(t0), domain.ErrInvalidTransition)
	require.NoError(t, f.MarkShipped("c", "t", t0))
	assert.False(t, f.Open())
	assert.ErrorIs(t, f.Cancel("tarde", t0), domain.ErrInvalidTransition)
	require.NoError(t, f.MarkDelivered(t0))

	assert.Equal(t, PlatformOwner, OwnerKeyFor(FulfillmentPlatformWarehouse, "m1"))
	assert.Equal(t, "m1", OwnerKeyFor(FulfillmentMerchantWarehouse, "m1"))
}

func TestInboundException_Lifecycle(t *testing.T) {
	e := &InboundException{ID: "ex-1", Type: ExceptionDamaged, Status: ExceptionPending}
	assert.ErrorIs(t, e.Resolve(ResolutionAccept, "", t0), domain.ErrInvalidTransition)
	require.NoError(t, e.StartProcessing(t0))
	assert.ErrorIs(t, e.Resolve("x", "", t0), domain.ErrInvalidInput)
	require.NoError(t, e.Resolve(ResolutionClaim, "reclamo a transportadora", t0))
	assert.Equal(t, ExceptionResolved, e.Status)
	require.NotNil(t, e.ResolvedAt)
	assert.ErrorIs(t, e.Close("", t0), domain.ErrInvalidTransition)

	other := &InboundException{ID: "ex-2", Status: ExceptionPending}
	require.NoError(t, other.Close("duplicada", t0))
	assert.Equal(t, ExceptionClosed, other.Status)
}
