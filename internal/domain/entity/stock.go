package entity

import "time"

// StockRecord cantidad actual de un producto en una sucursal (par único producto+sucursal).
// Se crea perezosamente con el primer movimiento y nunca se elimina; cantidad 0 es un estado válido.
type StockRecord struct {
	ProductID       string
	BranchID        string
	Quantity        int
	IsLowStock      bool
	LastRestockDate *time.Time
	LastSaleDate    *time.Time
	UpdatedAt       time.Time
}

// NewStockRecord registro vacío para un par sin historial.
func NewStockRecord(productID, branchID string) *StockRecord {
	return &StockRecord{ProductID: productID, BranchID: branchID}
}

// Clone copia el registro (las fechas son punteros).
func (s *StockRecord) Clone() *StockRecord {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastRestockDate != nil {
		t := *s.LastRestockDate
		c.LastRestockDate = &t
	}
	if s.LastSaleDate != nil {
		t := *s.LastSaleDate
		c.LastSaleDate = &t
	}
	return &c
}

// StockKey identifica un par producto+sucursal; el orden canónico de bloqueo es (ProductID, BranchID).
type StockKey struct {
	ProductID string
	BranchID  string
}

// Less orden canónico de bloqueo.
func (k StockKey) Less(o StockKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	return k.BranchID < o.BranchID
}

func (k StockKey) String() string { return k.ProductID + "@" + k.BranchID }
