package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// SaleItemRequest línea de venta; UnitPrice vacío toma el precio de catálogo.
type SaleItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateSaleRequest body para POST /api/sales. BranchID vacío usa la sucursal del token.
type CreateSaleRequest struct {
	BranchID      string            `json:"branch_id"`
	CustomerID    string            `json:"customer_id" validate:"max=100"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty,oneof=CASH CARD TRANSFER EWALLET"`
	AmountPaid    *decimal.Decimal  `json:"amount_paid,omitempty"`
	Discount      decimal.Decimal   `json:"discount"`
	Notes         string            `json:"notes" validate:"max=1000"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// VoidSaleRequest body para anular o reembolsar.
type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// SaleListQuery filtros de GET /api/sales.
type SaleListQuery struct {
	BranchID string `query:"branch_id"`
	Day      string `query:"day" validate:"omitempty,datetime=2006-01-02"`
	PageRequest
}

// SaleItemResponse línea de venta.
type SaleItemResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	MovementID string          `json:"movement_id"`
}

// SaleResponse venta con sus líneas.
type SaleResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	BranchID      string             `json:"branch_id"`
	CashierID     string             `json:"cashier_id"`
	CustomerID    string             `json:"customer_id,omitempty"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TaxAmount     decimal.Decimal    `json:"tax_amount"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	Change        decimal.Decimal    `json:"change"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes,omitempty"`
	BusinessDay   string             `json:"business_day"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Items         []SaleItemResponse `json:"items"`
}

// SaleListResponse ventas paginadas.
type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// NewSaleResponse mapea la entidad.
func NewSaleResponse(s *entity.Sale) SaleResponse {
	items := make([]SaleItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, SaleItemResponse{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TaxRate:    it.TaxRate,
			Subtotal:   it.Subtotal,
			TaxAmount:  it.TaxAmount,
			MovementID: it.MovementID,
		})
	}
	return SaleResponse{
		ID:            s.ID,
		InvoiceNumber: s.InvoiceNumber,
		BranchID:      s.BranchID,
		CashierID:     s.CashierID,
		CustomerID:    s.CustomerID,
		Subtotal:      s.Subtotal,
		TaxAmount:     s.TaxAmount,
		Discount:      s.Discount,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		AmountPaid:    s.AmountPaid,
		Change:        s.Change,
		Status:        s.Status,
		Notes:         s.Notes,
		BusinessDay:   s.BusinessDay.Format("2006-01-02"),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Items:         items,
	}
}

// NewSaleResponses mapea un listado.
func NewSaleResponses(list []*entity.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewSaleResponse(s))
	}
	return out
}
