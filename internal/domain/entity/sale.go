package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de venta.
const (
	SaleStatusCompleted = "COMPLETED"
	SaleStatusCancelled = "CANCELLED"
	SaleStatusRefunded  = "REFUNDED"
)

// Métodos de pago.
const (
	PaymentCash     = "CASH"
	PaymentCard     = "CARD"
	PaymentTransfer = "TRANSFER"
	PaymentEWallet  = "EWALLET"
)

// IsValidPaymentMethod valida el método de pago.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentEWallet:
		return true
	}
	return false
}

// Sale transacción de punto de venta.
type Sale struct {
	ID            string
	InvoiceNumber string // INV-{branchCode}-{YYYYMMDD}-{###}
	BranchID      string
	CashierID     string
	CustomerID    string
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod string
	AmountPaid    decimal.Decimal
	Change        decimal.Decimal
	Status        string
	Notes         string
	BusinessDay   time.Time // día calendario en la zona horaria del negocio
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []SaleItem
}

// SaleItem línea de venta; MovementID apunta al movimiento OUT creado con la venta.
type SaleItem struct {
	ID         string
	SaleID     string
	ProductID  string
	Quantity   int
	UnitPrice  decimal.Decimal
	TaxRate    decimal.Decimal
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	MovementID string
}
