package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// PurchaseOrderItemRequest línea ordenada.
type PurchaseOrderItemRequest struct {
	ProductID  string          `json:"product_id" validate:"required"`
	OrderedQty int             `json:"ordered_qty" validate:"required,gt=0"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
type CreatePurchaseOrderRequest struct {
	SupplierID   string                     `json:"supplier_id" validate:"required,max=100"`
	BranchID     string                     `json:"branch_id" validate:"required"`
	Notes        string                     `json:"notes" validate:"max=1000"`
	ExpectedDate *time.Time                 `json:"expected_date,omitempty"`
	TaxAmount    decimal.Decimal            `json:"tax_amount"`
	Discount     decimal.Decimal            `json:"discount"`
	Items        []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdatePurchaseOrderRequest body para PUT /api/purchase-orders/:id (solo DRAFT).
type UpdatePurchaseOrderRequest struct {
	SupplierID   string                     `json:"supplier_id" validate:"max=100"`
	Notes        string                     `json:"notes" validate:"max=1000"`
	ExpectedDate *time.Time                 `json:"expected_date,omitempty"`
	TaxAmount    decimal.Decimal            `json:"tax_amount"`
	Discount     decimal.Decimal            `json:"discount"`
	Items        []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReceiveLineRequest cantidad recibida para una línea.
type ReceiveLineRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity"`
}

// ReceivePurchaseOrderRequest body para POST /api/purchase-orders/:id/receive.
type ReceivePurchaseOrderRequest struct {
	ReceivedDate *time.Time           `json:"received_date,omitempty"`
	Items        []ReceiveLineRequest `json:"items" validate:"required,min=1,dive"`
}

// CancelPurchaseOrderRequest body para cancelar.
type CancelPurchaseOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// PurchaseOrderListQuery filtros de GET /api/purchase-orders.
type PurchaseOrderListQuery struct {
	BranchID   string `query:"branch_id"`
	SupplierID string `query:"supplier_id"`
	Status     string `query:"status" validate:"omitempty,oneof=DRAFT PENDING APPROVED PARTIALLY_RECEIVED RECEIVED CANCELLED"`
	PageRequest
}

// PurchaseOrderItemResponse línea con cantidad pendiente.
type PurchaseOrderItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	OrderedQty  int             `json:"ordered_qty"`
	ReceivedQty int             `json:"received_qty"`
	PendingQty  int             `json:"pending_qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// PurchaseOrderResponse orden de compra.
type PurchaseOrderResponse struct {
	ID           string                      `json:"id"`
	PONumber     string                      `json:"po_number"`
	SupplierID   string                      `json:"supplier_id"`
	BranchID     string                      `json:"branch_id"`
	Status       string                      `json:"status"`
	Subtotal     decimal.Decimal             `json:"subtotal"`
	TaxAmount    decimal.Decimal             `json:"tax_amount"`
	Discount     decimal.Decimal             `json:"discount"`
	Total        decimal.Decimal             `json:"total"`
	Notes        string                      `json:"notes,omitempty"`
	CreatedBy    string                      `json:"created_by"`
	ApprovedBy   string                      `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time                  `json:"approved_at,omitempty"`
	ReceivedBy   string                      `json:"received_by,omitempty"`
	ReceivedDate *time.Time                  `json:"received_date,omitempty"`
	ExpectedDate *time.Time                  `json:"expected_date,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	Items        []PurchaseOrderItemResponse `json:"items"`
}

// PurchaseOrderListResponse órdenes paginadas.
type PurchaseOrderListResponse struct {
	Items []PurchaseOrderResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// NewPurchaseOrderResponse mapea la entidad.
func NewPurchaseOrderResponse(po *entity.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, 0, len(po.Items))
	for _, it := range po.Items {
		items = append(items, PurchaseOrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			OrderedQty:  it.OrderedQty,
			ReceivedQty: it.ReceivedQty,
			PendingQty:  it.Pending(),
			UnitCost:    it.UnitCost,
			Subtotal:    it.Subtotal,
		})
	}
	return PurchaseOrderResponse{
		ID:           po.ID,
		PONumber:     po.PONumber,
		SupplierID:   po.SupplierID,
		BranchID:     po.BranchID,
		Status:       po.Status,
		Subtotal:     po.Subtotal,
		TaxAmount:    po.TaxAmount,
		Discount:     po.Discount,
		Total:        po.Total,
		Notes:        po.Notes,
		CreatedBy:    po.CreatedBy,
		ApprovedBy:   po.ApprovedBy,
		ApprovedAt:   po.ApprovedAt,
		ReceivedBy:   po.ReceivedBy,
		ReceivedDate: po.ReceivedDate,
		ExpectedDate: po.ExpectedDate,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
		Items:        items,
	}
}

// NewPurchaseOrderResponses mapea un listado.
func NewPurchaseOrderResponses(list []*entity.PurchaseOrder) []PurchaseOrderResponse {
	out := make([]PurchaseOrderResponse, 0, len(list))
	for _, po := range list {
		out = append(out, NewPurchaseOrderResponse(po))
	}
	return out
}
