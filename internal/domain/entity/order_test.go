package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

func paidOrder(qty ...int64) *Order {
	o := &Order{ID: "o-1", Status: OrderPending, PaymentStatus: PaymentPaid}
	for i, q := range qty {
		o.Items = append(o.Items, OrderItem{ID: string(rune('a' + i)), OrderID: o.ID, Quantity: q, AllocationStatus: AllocationPending})
	}
	return o
}

func TestOrder_AllocationLifecycle(t *testing.T) {
	o := paidOrder(10, 2)
	require.NoError(t, o.StartAllocation(t0))
	assert.Equal(t, OrderAllocating, o.Status)

	require.NoError(t, o.Items[0].Allocate(4))
	assert.Equal(t, AllocationPartial, o.Items[0].AllocationStatus)
	assert.ErrorIs(t, o.Items[0].Allocate(7), domain.ErrInvalidInput)
	assert.ErrorIs(t, o.CompleteAllocation(t0), domain.ErrInvalidTransition)

	require.NoError(t, o.FailAllocation("stock insuficiente", t0))
	assert.Equal(t, OrderAllocationFailed, o.Status)
	assert.Equal(t, AllocationFailed, o.Items[0].AllocationStatus)
	assert.Equal(t, AllocationFailed, o.Items[1].AllocationStatus)

	require.NoError(t, o.StartAllocation(t0))
	assert.Empty(t, o.AllocationFailReason)
	assert.Equal(t, AllocationPartial, o.Items[0].AllocationStatus)
	require.NoError(t, o.Items[0].Allocate(6))
	require.NoError(t, o.Items[1].Allocate(2))
	require.NoError(t, o.CompleteAllocation(t0))
	assert.Equal(t, OrderAllocated, o.Status)
}

func TestOrder_UnpaidCannotAllocate(t *testing.T) {
	o := paidOrder(1)
	o.PaymentStatus = PaymentUnpaid
	assert.ErrorIs(t, o.StartAllocation(t0), domain.ErrInvalidTransition)
	require.NoError(t, o.MarkPaid(t0))
	require.NoError(t, o.StartAllocation(t0))
}

func TestOrder_ShipmentAndCompletion(t *testing.T) {
	o := paidOrder(3, 2)
	require.NoError(t, o.StartAllocation(t0))
	require.NoError(t, o.Items[0].Allocate(3))
	require.NoError(t, o.Items[1].Allocate(2))
	require.NoError(t, o.CompleteAllocation(t0))

	assert.ErrorIs(t, o.Items[0].Ship(4), domain.ErrInvalidInput)
	require.NoError(t, o.Items[0].Ship(3))
	require.NoError(t, o.RefreshShipment(t0))
	assert.Equal(t, OrderPartiallyShipped, o.Status)
	assert.ErrorIs(t, o.Cancel("cliente", t0), domain.ErrInvalidTransition)

	require.NoError(t, o.Items[1].Ship(2))
	require.NoError(t, o.RefreshShipment(t0))
	assert.Equal(t, OrderShipped, o.Status)
	require.NoError(t, o.Complete(t0))
	assert.Equal(t, OrderCompleted, o.Status)
}

func TestOrder_ReopenAndDeallocate(t *testing.T) {
	o := paidOrder(5)
	require.NoError(t, o.StartAllocation(t0))
	require.NoError(t, o.Items[0].Allocate(5))
	require.NoError(t, o.CompleteAllocation(t0))

	o.Items[0].Deallocate(5)
	require.NoError(t, o.ReopenAllocation("fulfillment cancelado", t0))
	assert.Equal(t, OrderAllocationFailed, o.Status)
	assert.Equal(t, int64(5), o.Items[0].PendingQuantity())
	assert.Equal(t, AllocationFailed, o.Items[0].AllocationStatus)

	require.NoError(t, o.Cancel("cliente", t0))
	assert.Equal(t, OrderCancelled, o.Status)
	assert.ErrorIs(t, o.ReopenAllocation("x", t0), domain.ErrInvalidTransition)
}

func TestOrder_ReopenAfterPartialShipmentCanRetry(t *testing.T) {
	o := paidOrder(3, 2)
	require.NoError(t, o.StartAllocation(t0))
	require.NoError(t, o.Items[0].Allocate(3))
	require.NoError(t, o.Items[1].Allocate(2))
	require.NoError(t, o.CompleteAllocation(t0))

	// se cancela lo de la línea 1 y después sale la línea 0
	o.Items[1].Deallocate(2)
	require.NoError(t, o.ReopenAllocation("fulfillment cancelado", t0))
	require.NoError(t, o.Items[0].Ship(3))
	require.NoError(t, o.RefreshShipment(t0))
	assert.Equal(t, OrderAllocationFailed, o.Status)

	require.NoError(t, o.StartAllocation(t0))
	require.NoError(t, o.Items[1].Allocate(2))
	require.NoError(t, o.CompleteAllocation(t0))
	assert.Equal(t, OrderPartiallyShipped, o.Status)

	require.NoError(t, o.Items[1].Ship(2))
	require.NoError(t, o.RefreshShipment(t0))
	assert.Equal(t, OrderShipped, o.Status)

	// reabrir una orden parcialmente despachada también deja reintentar
	p := paidOrder(2, 2)
	require.NoError(t, p.StartAllocation(t0))
	require.NoError(t, p.Items[0].Allocate(2))
	require.NoError(t, p.Items[1].Allocate(2))
	require.NoError(t, p.CompleteAllocation(t0))
	require.NoError(t, p.Items[0].Ship(2))
	require.NoError(t, p.RefreshShipment(t0))
	require.Equal(t, OrderPartiallyShipped, p.Status)
	p.Items[1].Deallocate(2)
	require.NoError(t, p.ReopenAllocation("fulfillment cancelado", t0))
	assert.Equal(t, OrderAllocationFailed, p.Status)
	assert.NoError(t, p.StartAllocation(t0))
}

func TestOrder_CancelRefusedWhileAllocating(t *testing.T) {
	o := paidOrder(1)
	require.NoError(t, o.StartAllocation(t0))
	assert.ErrorIs(t, o.Cancel("cliente", t0), domain.ErrInvalidTransition)
}
