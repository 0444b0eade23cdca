package entity

import "time"

// WarehouseType quién opera la bodega.
type WarehouseType string

const (
	WarehousePlatform WarehouseType = "platform"
	WarehouseMerchant WarehouseType = "merchant"
)

// Warehouse bodega física. Las de plataforma sincronizan con el WMS; las de comerciante las opera el dueño.
type Warehouse struct {
	ID         string
	Code       string
	Name       string
	Type       WarehouseType
	MerchantID string // vacío para bodegas de plataforma
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FulfillmentType deriva el tipo de fulfillment que sale de esta bodega.
func (w *Warehouse) FulfillmentType() FulfillmentType {
	if w.Type == WarehousePlatform {
		return FulfillmentPlatformWarehouse
	}
	return FulfillmentMerchantWarehouse
}

// IsPlatform true para bodegas operadas por la plataforma.
func (w *Warehouse) IsPlatform() bool {
	return w.Type == WarehousePlatform
}
