package memory

import "github.com/jhoicas/marketplace-ledger/internal/domain/entity"

// Los valores guardados nunca se modifican en sitio: se entregan y se reciben copias.

func cloneRecord(r *entity.InventoryRecord) *entity.InventoryRecord {
	c := *r
	if r.SafetyStock != nil {
		v := *r.SafetyStock
		c.SafetyStock = &v
	}
	return &c
}

func cloneTransaction(t *entity.InventoryTransaction) *entity.InventoryTransaction {
	c := *t
	return &c
}

func cloneListing(l *entity.Listing) *entity.Listing {
	c := *l
	return &c
}

func cloneChannelProduct(cp *entity.ChannelProduct) *entity.ChannelProduct {
	c := *cp
	c.Sources = append([]entity.ChannelProductSource(nil), cp.Sources...)
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Items = append([]entity.OrderItem(nil), o.Items...)
	return &c
}

func cloneFulfillment(f *entity.Fulfillment) *entity.Fulfillment {
	c := *f
	c.Items = append([]entity.FulfillmentItem(nil), f.Items...)
	return &c
}

func cloneOutbound(o *entity.OutboundOrder) *entity.OutboundOrder {
	c := *o
	c.Items = append([]entity.OutboundOrderItem(nil), o.Items...)
	return &c
}

func cloneInbound(o *entity.InboundOrder) *entity.InboundOrder {
	c := *o
	c.Items = append([]entity.InboundOrderItem(nil), o.Items...)
	return &c
}

func cloneException(e *entity.InboundException) *entity.InboundException {
	c := *e
	return &c
}

func cloneWarehouse(w *entity.Warehouse) *entity.Warehouse {
	c := *w
	return &c
}

func cloneProduct(p *entity.Product) *entity.Product {
	c := *p
	return &c
}
