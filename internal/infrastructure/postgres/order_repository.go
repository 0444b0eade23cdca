package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var (
	_ repository.OrderRepository       = (*OrderRepo)(nil)
	_ repository.FulfillmentRepository = (*FulfillmentRepo)(nil)
)

// OrderRepo órdenes de canal con sus líneas.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, channel_id, external_order_no, status, payment_status, allocation_fail_reason,
	receiver, total_amount, cancel_reason, created_at, updated_at`

const orderItemColumns = `id, order_id, channel_product_id, sku, quantity, allocated_quantity, shipped_quantity,
	unit_price, allocation_status`

func scanOrder(s scanner) (*entity.Order, error) {
	var o entity.Order
	err := s.Scan(&o.ID, &o.ChannelID, &o.ExternalOrderNo, &o.Status, &o.PaymentStatus, &o.AllocationFailReason,
		&o.Receiver, &o.TotalAmount, &o.CancelReason, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query, o.ID, o.ChannelID, o.ExternalOrderNo, o.Status, o.PaymentStatus,
		o.AllocationFailReason, o.Receiver, o.TotalAmount, o.CancelReason, o.CreatedAt, o.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	itemQuery := `
		INSERT INTO order_items (position, ` + orderItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i, it := range o.Items {
		if _, err := r.q.Exec(ctx, itemQuery, i, it.ID, o.ID, it.ChannelProductID, it.SKU, it.Quantity,
			it.AllocatedQuantity, it.ShippedQuantity, it.UnitPrice, it.AllocationStatus); err != nil {
			return fmt.Errorf("create order item: %w", insertErr(err))
		}
	}
	return nil
}

func (r *OrderRepo) withItems(ctx context.Context, list []*entity.Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.Order, len(list))
	for i, o := range list {
		ids[i] = o.ID
		byID[o.ID] = o
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ChannelProductID, &it.SKU, &it.Quantity,
			&it.AllocatedQuantity, &it.ShippedQuantity, &it.UnitPrice, &it.AllocationStatus); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *OrderRepo) getOne(ctx context.Context, where string, args ...any) (*entity.Order, error) {
	o, err := noRows(scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, args...)))
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, nil
	}
	if err := r.withItems(ctx, []*entity.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) GetByExternal(ctx context.Context, channelID, externalOrderNo string) (*entity.Order, error) {
	return r.getOne(ctx, `channel_id = $1 AND external_order_no = $2`, channelID, externalOrderNo)
}

// Update reescribe la cabecera y los contadores de cada línea.
func (r *OrderRepo) Update(ctx context.Context, o *entity.Order) error {
	query := `
		UPDATE orders SET status = $2, payment_status = $3, allocation_fail_reason = $4,
			receiver = $5, total_amount = $6, cancel_reason = $7, updated_at = $8
		WHERE id = $1`
	if err := mustAffect(r.q.Exec(ctx, query, o.ID, o.Status, o.PaymentStatus, o.AllocationFailReason,
		o.Receiver, o.TotalAmount, o.CancelReason, o.UpdatedAt)); err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	for _, it := range o.Items {
		if err := mustAffect(r.q.Exec(ctx, `
			UPDATE order_items SET allocated_quantity = $2, shipped_quantity = $3, allocation_status = $4
			WHERE id = $1`, it.ID, it.AllocatedQuantity, it.ShippedQuantity, it.AllocationStatus)); err != nil {
			return fmt.Errorf("update order item %s: %w", it.ID, err)
		}
	}
	return nil
}

func (r *OrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR channel_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY id DESC LIMIT $3 OFFSET $4`, f.ChannelID, string(f.Status), limitArg(f.Limit), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var list []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.withItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// FulfillmentRepo fulfillments con sus líneas.
type FulfillmentRepo struct {
	q Querier
}

// NewFulfillmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFulfillmentRepository(q Querier) *FulfillmentRepo {
	return &FulfillmentRepo{q: q}
}

const fulfillmentColumns = `id, fulfillment_no, order_id, warehouse_id, owner_key, type, status, carrier,
	tracking_number, cancel_reason, shipped_at, delivered_at, created_at, updated_at`

const fulfillmentItemColumns = `id, fulfillment_id, order_item_id, inventory_record_id, listing_id, source_id,
	sku, quantity, settlement_price, commission, created_at`

func scanFulfillment(s scanner) (*entity.Fulfillment, error) {
	var f entity.Fulfillment
	err := s.Scan(&f.ID, &f.FulfillmentNo, &f.OrderID, &f.WarehouseID, &f.OwnerKey, &f.Type, &f.Status,
		&f.Carrier, &f.TrackingNumber, &f.CancelReason, &f.ShippedAt, &f.DeliveredAt, &f.CreatedAt, &f.UpdatedAt)
	return &f, err
}

func (r *FulfillmentRepo) Create(ctx context.Context, f *entity.Fulfillment) error {
	query := `
		INSERT INTO fulfillments (` + fulfillmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query, f.ID, f.FulfillmentNo, f.OrderID, f.WarehouseID, f.OwnerKey, f.Type, f.Status,
		f.Carrier, f.TrackingNumber, f.CancelReason, f.ShippedAt, f.DeliveredAt, f.CreatedAt, f.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create fulfillment: %w", err)
	}
	for i := range f.Items {
		if err := r.AddItem(ctx, &f.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *FulfillmentRepo) AddItem(ctx context.Context, it *entity.FulfillmentItem) error {
	query := `
		INSERT INTO fulfillment_items (` + fulfillmentItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query, it.ID, it.FulfillmentID, it.OrderItemID, it.InventoryRecordID, it.ListingID,
		it.SourceID, it.SKU, it.Quantity, it.SettlementPrice, it.Commission, it.CreatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("add fulfillment item: %w", err)
	}
	return nil
}

func (r *FulfillmentRepo) withItems(ctx context.Context, list []*entity.Fulfillment) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.Fulfillment, len(list))
	for i, f := range list {
		ids[i] = f.ID
		byID[f.ID] = f
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+fulfillmentItemColumns+` FROM fulfillment_items
		WHERE fulfillment_id = ANY($1) ORDER BY created_at, id`, ids)
	if err != nil {
		return fmt.Errorf("list fulfillment items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.FulfillmentItem
		if err := rows.Scan(&it.ID, &it.FulfillmentID, &it.OrderItemID, &it.InventoryRecordID, &it.ListingID,
			&it.SourceID, &it.SKU, &it.Quantity, &it.SettlementPrice, &it.Commission, &it.CreatedAt); err != nil {
			return fmt.Errorf("scan fulfillment item: %w", err)
		}
		if f, ok := byID[it.FulfillmentID]; ok {
			f.Items = append(f.Items, it)
		}
	}
	return rows.Err()
}

func (r *FulfillmentRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Fulfillment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fulfillments: %w", err)
	}
	var list []*entity.Fulfillment
	for rows.Next() {
		f, err := scanFulfillment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan fulfillment: %w", err)
		}
		list = append(list, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.withItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *FulfillmentRepo) first(ctx context.Context, where string, args ...any) (*entity.Fulfillment, error) {
	list, err := r.list(ctx, `SELECT `+fulfillmentColumns+` FROM fulfillments WHERE `+where, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *FulfillmentRepo) GetByID(ctx context.Context, id string) (*entity.Fulfillment, error) {
	return r.first(ctx, `id = $1`, id)
}

func (r *FulfillmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Fulfillment, error) {
	return r.first(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *FulfillmentRepo) FindOpenByKey(ctx context.Context, orderID, warehouseID, ownerKey string) (*entity.Fulfillment, error) {
	return r.first(ctx, `order_id = $1 AND warehouse_id = $2 AND owner_key = $3 AND status = $4 ORDER BY id LIMIT 1`,
		orderID, warehouseID, ownerKey, string(entity.FulfillmentPending))
}

func (r *FulfillmentRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Fulfillment, error) {
	return r.list(ctx, `SELECT `+fulfillmentColumns+` FROM fulfillments WHERE order_id = $1 ORDER BY id`, orderID)
}

// Update reescribe la cabecera; las líneas son inmutables una vez agregadas.
func (r *FulfillmentRepo) Update(ctx context.Context, f *entity.Fulfillment) error {
	query := `
		UPDATE fulfillments SET status = $2, carrier = $3, tracking_number = $4, cancel_reason = $5,
			shipped_at = $6, delivered_at = $7, updated_at = $8
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, f.ID, f.Status, f.Carrier, f.TrackingNumber, f.CancelReason,
		f.ShippedAt, f.DeliveredAt, f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update fulfillment %s: %w", f.ID, err)
	}
	return nil
}
