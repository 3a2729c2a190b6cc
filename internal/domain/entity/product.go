package entity

import "github.com/shopspring/decimal"

// Product vista de solo lectura del catálogo que consume el motor de inventario.
type Product struct {
	ID       string
	SKU      string
	Name     string
	Price    decimal.Decimal // precio de venta
	TaxRate  decimal.Decimal // IVA: 0, 0.05 (5%), 0.19 (19%)
	MinStock int             // umbral de stock bajo
	IsActive bool
}
