package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var (
	_ repository.OutboundOrderRepository    = (*OutboundOrderRepo)(nil)
	_ repository.InboundOrderRepository     = (*InboundOrderRepo)(nil)
	_ repository.InboundExceptionRepository = (*InboundExceptionRepo)(nil)
	_ repository.DocumentSequenceRepository = (*DocumentSequenceRepo)(nil)
)

// OutboundOrderRepo documentos de salida hacia el WMS.
type OutboundOrderRepo struct {
	q Querier
}

// NewOutboundOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboundOrderRepository(q Querier) *OutboundOrderRepo {
	return &OutboundOrderRepo{q: q}
}

const outboundColumns = `id, outbound_no, fulfillment_id, order_id, warehouse_id, status, sync_status,
	external_id, sync_attempts, sync_error, last_sync_at, receiver, carrier, tracking_number,
	picked_at, packed_at, shipped_at, created_at, updated_at`

const outboundItemColumns = `id, outbound_order_id, fulfillment_item_id, sku, product_name, image_url, quantity`

func scanOutbound(s scanner) (*entity.OutboundOrder, error) {
	var o entity.OutboundOrder
	err := s.Scan(&o.ID, &o.OutboundNo, &o.FulfillmentID, &o.OrderID, &o.WarehouseID, &o.Status, &o.SyncStatus,
		&o.ExternalID, &o.SyncAttempts, &o.SyncError, &o.LastSyncAt, &o.Receiver, &o.Carrier, &o.TrackingNumber,
		&o.PickedAt, &o.PackedAt, &o.ShippedAt, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *OutboundOrderRepo) Create(ctx context.Context, o *entity.OutboundOrder) error {
	query := `
		INSERT INTO outbound_orders (` + outboundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query, o.ID, o.OutboundNo, o.FulfillmentID, o.OrderID, o.WarehouseID, o.Status,
		o.SyncStatus, o.ExternalID, o.SyncAttempts, o.SyncError, o.LastSyncAt, o.Receiver, o.Carrier,
		o.TrackingNumber, o.PickedAt, o.PackedAt, o.ShippedAt, o.CreatedAt, o.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create outbound order: %w", err)
	}
	itemQuery := `INSERT INTO outbound_order_items (` + outboundItemColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, it := range o.Items {
		if _, err := r.q.Exec(ctx, itemQuery, it.ID, o.ID, it.FulfillmentItemID, it.SKU, it.ProductName,
			it.ImageURL, it.Quantity); err != nil {
			return fmt.Errorf("create outbound order item: %w", insertErr(err))
		}
	}
	return nil
}

func (r *OutboundOrderRepo) withItems(ctx context.Context, list []*entity.OutboundOrder) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.OutboundOrder, len(list))
	for i, o := range list {
		ids[i] = o.ID
		byID[o.ID] = o
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+outboundItemColumns+` FROM outbound_order_items
		WHERE outbound_order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("list outbound order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OutboundOrderItem
		if err := rows.Scan(&it.ID, &it.OutboundOrderID, &it.FulfillmentItemID, &it.SKU, &it.ProductName,
			&it.ImageURL, &it.Quantity); err != nil {
			return fmt.Errorf("scan outbound order item: %w", err)
		}
		if o, ok := byID[it.OutboundOrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *OutboundOrderRepo) list(ctx context.Context, query string, args ...any) ([]*entity.OutboundOrder, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbound orders: %w", err)
	}
	var list []*entity.OutboundOrder
	for rows.Next() {
		o, err := scanOutbound(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan outbound order: %w", err)
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

func (r *OutboundOrderRepo) first(ctx context.Context, where string, args ...any) (*entity.OutboundOrder, error) {
	list, err := r.list(ctx, `SELECT `+outboundColumns+` FROM outbound_orders WHERE `+where, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *OutboundOrderRepo) GetByID(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	return r.first(ctx, `id = $1`, id)
}

func (r *OutboundOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	return r.first(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *OutboundOrderRepo) GetByFulfillment(ctx context.Context, fulfillmentID string) (*entity.OutboundOrder, error) {
	return r.first(ctx, `fulfillment_id = $1`, fulfillmentID)
}

func (r *OutboundOrderRepo) GetByOutboundNo(ctx context.Context, outboundNo string) (*entity.OutboundOrder, error) {
	return r.first(ctx, `outbound_no = $1`, outboundNo)
}

// Update reescribe la cabecera; las líneas son un snapshot fijo.
func (r *OutboundOrderRepo) Update(ctx context.Context, o *entity.OutboundOrder) error {
	query := `
		UPDATE outbound_orders SET status = $2, sync_status = $3, external_id = $4, sync_attempts = $5,
			sync_error = $6, last_sync_at = $7, carrier = $8, tracking_number = $9, picked_at = $10,
			packed_at = $11, shipped_at = $12, updated_at = $13
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, o.ID, o.Status, o.SyncStatus, o.ExternalID, o.SyncAttempts,
		o.SyncError, o.LastSyncAt, o.Carrier, o.TrackingNumber, o.PickedAt, o.PackedAt, o.ShippedAt, o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update outbound order %s: %w", o.ID, err)
	}
	return nil
}

// ListSyncable pending/failed no cancelados; menos intentos primero, luego más viejos.
func (r *OutboundOrderRepo) ListSyncable(ctx context.Context, limit int) ([]*entity.OutboundOrder, error) {
	return r.list(ctx, `
		SELECT `+outboundColumns+` FROM outbound_orders
		WHERE sync_status IN ($1, $2) AND status <> $3
		ORDER BY sync_attempts, created_at, id LIMIT $4`,
		string(entity.SyncPending), string(entity.SyncFailed), string(entity.OutboundCancelled), limitArg(limit))
}

func (r *OutboundOrderRepo) List(ctx context.Context, f repository.OutboundFilter) ([]*entity.OutboundOrder, error) {
	return r.list(ctx, `
		SELECT `+outboundColumns+` FROM outbound_orders
		WHERE ($1 = '' OR warehouse_id = $1) AND ($2 = '' OR status = $2) AND ($3 = '' OR sync_status = $3)
		ORDER BY id LIMIT $4 OFFSET $5`,
		f.WarehouseID, string(f.Status), string(f.SyncStatus), limitArg(f.Limit), f.Offset)
}

// InboundOrderRepo documentos de reposición con sus líneas.
type InboundOrderRepo struct {
	q Querier
}

// NewInboundOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInboundOrderRepository(q Querier) *InboundOrderRepo {
	return &InboundOrderRepo{q: q}
}

const inboundColumns = `id, inbound_no, merchant_id, warehouse_id, status, carrier, tracking_number,
	expected_arrival_at, remark, submitted_at, shipped_at, arrived_at, completed_at, cancelled_at,
	created_at, updated_at`

const inboundItemColumns = `id, inbound_order_id, sku, inventory_record_id, expected_quantity, received_quantity,
	damaged_quantity, unit_cost, status, remark, received_at`

func scanInbound(s scanner) (*entity.InboundOrder, error) {
	var o entity.InboundOrder
	err := s.Scan(&o.ID, &o.InboundNo, &o.MerchantID, &o.WarehouseID, &o.Status, &o.Carrier, &o.TrackingNumber,
		&o.ExpectedArrivalAt, &o.Remark, &o.SubmittedAt, &o.ShippedAt, &o.ArrivedAt, &o.CompletedAt,
		&o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *InboundOrderRepo) Create(ctx context.Context, o *entity.InboundOrder) error {
	query := `
		INSERT INTO inbound_orders (` + inboundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query, o.ID, o.InboundNo, o.MerchantID, o.WarehouseID, o.Status, o.Carrier,
		o.TrackingNumber, o.ExpectedArrivalAt, o.Remark, o.SubmittedAt, o.ShippedAt, o.ArrivedAt, o.CompletedAt,
		o.CancelledAt, o.CreatedAt, o.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create inbound order: %w", err)
	}
	itemQuery := `
		INSERT INTO inbound_order_items (position, ` + inboundItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for i, it := range o.Items {
		if _, err := r.q.Exec(ctx, itemQuery, i, it.ID, o.ID, it.SKU, it.InventoryRecordID, it.ExpectedQuantity,
			it.ReceivedQuantity, it.DamagedQuantity, it.UnitCost, it.Status, it.Remark, it.ReceivedAt); err != nil {
			return fmt.Errorf("create inbound order item: %w", insertErr(err))
		}
	}
	return nil
}

func (r *InboundOrderRepo) withItems(ctx context.Context, list []*entity.InboundOrder) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.InboundOrder, len(list))
	for i, o := range list {
		ids[i] = o.ID
		byID[o.ID] = o
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+inboundItemColumns+` FROM inbound_order_items
		WHERE inbound_order_id = ANY($1) ORDER BY inbound_order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list inbound order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.InboundOrderItem
		if err := rows.Scan(&it.ID, &it.InboundOrderID, &it.SKU, &it.InventoryRecordID, &it.ExpectedQuantity,
			&it.ReceivedQuantity, &it.DamagedQuantity, &it.UnitCost, &it.Status, &it.Remark, &it.ReceivedAt); err != nil {
			return fmt.Errorf("scan inbound order item: %w", err)
		}
		if o, ok := byID[it.InboundOrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *InboundOrderRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InboundOrder, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inbound orders: %w", err)
	}
	var list []*entity.InboundOrder
	for rows.Next() {
		o, err := scanInbound(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan inbound order: %w", err)
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

func (r *InboundOrderRepo) first(ctx context.Context, where string, args ...any) (*entity.InboundOrder, error) {
	list, err := r.list(ctx, `SELECT `+inboundColumns+` FROM inbound_orders WHERE `+where, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *InboundOrderRepo) GetByID(ctx context.Context, id string) (*entity.InboundOrder, error) {
	return r.first(ctx, `id = $1`, id)
}

func (r *InboundOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.InboundOrder, error) {
	return r.first(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *InboundOrderRepo) GetByInboundNo(ctx context.Context, inboundNo string) (*entity.InboundOrder, error) {
	return r.first(ctx, `inbound_no = $1`, inboundNo)
}

// Update reescribe la cabecera; las líneas van por UpdateItem.
func (r *InboundOrderRepo) Update(ctx context.Context, o *entity.InboundOrder) error {
	query := `
		UPDATE inbound_orders SET status = $2, carrier = $3, tracking_number = $4, expected_arrival_at = $5,
			remark = $6, submitted_at = $7, shipped_at = $8, arrived_at = $9, completed_at = $10,
			cancelled_at = $11, updated_at = $12
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, o.ID, o.Status, o.Carrier, o.TrackingNumber, o.ExpectedArrivalAt,
		o.Remark, o.SubmittedAt, o.ShippedAt, o.ArrivedAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update inbound order %s: %w", o.ID, err)
	}
	return nil
}

func (r *InboundOrderRepo) UpdateItem(ctx context.Context, it *entity.InboundOrderItem) error {
	query := `
		UPDATE inbound_order_items SET inventory_record_id = $2, received_quantity = $3, damaged_quantity = $4,
			unit_cost = $5, status = $6, remark = $7, received_at = $8
		WHERE id = $1 AND inbound_order_id = $9`
	err := mustAffect(r.q.Exec(ctx, query, it.ID, it.InventoryRecordID, it.ReceivedQuantity, it.DamagedQuantity,
		it.UnitCost, it.Status, it.Remark, it.ReceivedAt, it.InboundOrderID))
	if err != nil {
		return fmt.Errorf("update inbound order item %s: %w", it.ID, err)
	}
	return nil
}

func (r *InboundOrderRepo) List(ctx context.Context, f repository.InboundFilter) ([]*entity.InboundOrder, error) {
	return r.list(ctx, `
		SELECT `+inboundColumns+` FROM inbound_orders
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR warehouse_id = $2) AND ($3 = '' OR status = $3)
		ORDER BY id DESC LIMIT $4 OFFSET $5`,
		f.MerchantID, f.WarehouseID, string(f.Status), limitArg(f.Limit), f.Offset)
}

// InboundExceptionRepo novedades de recepción.
type InboundExceptionRepo struct {
	q Querier
}

// NewInboundExceptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInboundExceptionRepository(q Querier) *InboundExceptionRepo {
	return &InboundExceptionRepo{q: q}
}

const exceptionColumns = `id, exception_no, inbound_order_id, inbound_order_item_id, type, status, quantity,
	description, resolution, resolution_note, resolved_at, created_at, updated_at`

func scanException(s scanner) (*entity.InboundException, error) {
	var e entity.InboundException
	err := s.Scan(&e.ID, &e.ExceptionNo, &e.InboundOrderID, &e.InboundOrderItemID, &e.Type, &e.Status, &e.Quantity,
		&e.Description, &e.Resolution, &e.ResolutionNote, &e.ResolvedAt, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *InboundExceptionRepo) Create(ctx context.Context, e *entity.InboundException) error {
	query := `
		INSERT INTO inbound_exceptions (` + exceptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query, e.ID, e.ExceptionNo, e.InboundOrderID, e.InboundOrderItemID, e.Type, e.Status,
		e.Quantity, e.Description, e.Resolution, e.ResolutionNote, e.ResolvedAt, e.CreatedAt, e.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create inbound exception: %w", err)
	}
	return nil
}

func (r *InboundExceptionRepo) getOne(ctx context.Context, where string, args ...any) (*entity.InboundException, error) {
	e, err := noRows(scanException(r.q.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM inbound_exceptions WHERE `+where, args...)))
	if err != nil {
		return nil, fmt.Errorf("get inbound exception: %w", err)
	}
	return e, nil
}

func (r *InboundExceptionRepo) GetByID(ctx context.Context, id string) (*entity.InboundException, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *InboundExceptionRepo) GetForUpdate(ctx context.Context, id string) (*entity.InboundException, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *InboundExceptionRepo) Update(ctx context.Context, e *entity.InboundException) error {
	query := `
		UPDATE inbound_exceptions SET status = $2, resolution = $3, resolution_note = $4, resolved_at = $5,
			description = $6, updated_at = $7
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, e.ID, e.Status, e.Resolution, e.ResolutionNote, e.ResolvedAt,
		e.Description, e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update inbound exception %s: %w", e.ID, err)
	}
	return nil
}

func (r *InboundExceptionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InboundException, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inbound exceptions: %w", err)
	}
	defer rows.Close()
	var list []*entity.InboundException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inbound exception: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *InboundExceptionRepo) ListByInbound(ctx context.Context, inboundOrderID string) ([]*entity.InboundException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM inbound_exceptions WHERE inbound_order_id = $1 ORDER BY id`, inboundOrderID)
}

func (r *InboundExceptionRepo) List(ctx context.Context, status entity.ExceptionStatus, limit, offset int) ([]*entity.InboundException, error) {
	return r.list(ctx, `
		SELECT `+exceptionColumns+` FROM inbound_exceptions
		WHERE ($1 = '' OR status = $1)
		ORDER BY id LIMIT $2 OFFSET $3`, string(status), limitArg(limit), offset)
}

// DocumentSequenceRepo contador diario por prefijo (upsert atómico).
type DocumentSequenceRepo struct {
	q Querier
}

// NewDocumentSequenceRepository construye el adaptador.
func NewDocumentSequenceRepository(q Querier) *DocumentSequenceRepo {
	return &DocumentSequenceRepo{q: q}
}

func (r *DocumentSequenceRepo) Next(ctx context.Context, prefix, day string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO document_sequences (prefix, day, value) VALUES ($1, $2, 1)
		ON CONFLICT (prefix, day) DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`, prefix, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next document sequence %s%s: %w", prefix, day, err)
	}
	return n, nil
}
