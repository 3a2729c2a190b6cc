package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         = "IN"
	MovementTypeOUT        = "OUT"
	MovementTypeTRANSFER   = "TRANSFER"
	MovementTypeADJUSTMENT = "ADJUSTMENT"
)

// Tipos de referencia (evento de negocio que originó el movimiento).
const (
	ReferenceSale          = "SALE"
	ReferencePurchaseOrder = "PURCHASE_ORDER"
	ReferenceTransfer      = "TRANSFER"
	ReferenceAdjustment    = "ADJUSTMENT"
)

// IsValidMovementType valida el tipo.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeTRANSFER, MovementTypeADJUSTMENT:
		return true
	}
	return false
}

// StockMovement registro inmutable del libro de movimientos.
// Invariante: NewQuantity == PreviousQuantity + QuantityDelta.
// Seq define el orden de inserción (trayectoria del stock).
type StockMovement struct {
	ID                  string
	Seq                 int64
	ProductID           string
	BranchID            string
	Type                string
	QuantityDelta       int
	PreviousQuantity    int
	NewQuantity         int
	PerformedBy         string
	Reason              string
	Notes               string
	ReferenceType       string
	ReferenceID         string
	CounterpartBranchID string
	CreatedAt           time.Time
}

// Key par producto+sucursal del movimiento.
func (m *StockMovement) Key() StockKey {
	return StockKey{ProductID: m.ProductID, BranchID: m.BranchID}
}
