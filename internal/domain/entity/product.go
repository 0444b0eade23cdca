package entity

import "time"

// Product ficha de catálogo de un SKU de comerciante. Solo lectura para el libro:
// se usa para el snapshot de nombre e imagen en documentos de salida.
type Product struct {
	ID         string
	MerchantID string
	SKU        string
	Name       string
	ImageURL   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
