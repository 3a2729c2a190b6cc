package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// AdjustRequest body para POST /api/inventory/adjustments.
// Quantity lleva signo: INCREASE > 0, DECREASE < 0; en SET es la cantidad contada.
type AdjustRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	BranchID  string `json:"branch_id" validate:"required"`
	Direction string `json:"direction" validate:"required,oneof=INCREASE DECREASE SET"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason" validate:"required,max=255"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	FromBranchID string `json:"from_branch_id" validate:"required"`
	ToBranchID   string `json:"to_branch_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	Notes        string `json:"notes" validate:"max=1000"`
}

// MovementQuery filtros de GET /api/inventory/movements (fechas RFC3339).
type MovementQuery struct {
	ProductID     string `query:"product_id"`
	BranchID      string `query:"branch_id"`
	Type          string `query:"type" validate:"omitempty,oneof=IN OUT TRANSFER ADJUSTMENT"`
	ReferenceType string `query:"reference_type" validate:"omitempty,oneof=SALE PURCHASE_ORDER TRANSFER ADJUSTMENT"`
	ReferenceID   string `query:"reference_id"`
	From          string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To            string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PageRequest
}

// StockRecordResponse stock de un producto en una sucursal.
type StockRecordResponse struct {
	ProductID       string     `json:"product_id"`
	BranchID        string     `json:"branch_id"`
	Quantity        int        `json:"quantity"`
	IsLowStock      bool       `json:"is_low_stock"`
	LastRestockDate *time.Time `json:"last_restock_date,omitempty"`
	LastSaleDate    *time.Time `json:"last_sale_date,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StockListResponse stock paginado de una sucursal.
type StockListResponse struct {
	Items []StockRecordResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// MovementResponse fila del libro de movimientos.
type MovementResponse struct {
	ID                  string    `json:"id"`
	Seq                 int64     `json:"seq"`
	ProductID           string    `json:"product_id"`
	BranchID            string    `json:"branch_id"`
	Type                string    `json:"type"`
	QuantityDelta       int       `json:"quantity_delta"`
	PreviousQuantity    int       `json:"previous_quantity"`
	NewQuantity         int       `json:"new_quantity"`
	PerformedBy         string    `json:"performed_by"`
	Reason              string    `json:"reason,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	ReferenceType       string    `json:"reference_type,omitempty"`
	ReferenceID         string    `json:"reference_id,omitempty"`
	CounterpartBranchID string    `json:"counterpart_branch_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// MovementListResponse movimientos paginados.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// AdjustResponse resultado de un ajuste.
type AdjustResponse struct {
	Stock    StockRecordResponse `json:"stock"`
	Movement MovementResponse    `json:"movement"`
}

// TransferResponse resultado de un traslado.
type TransferResponse struct {
	TransferID  string               `json:"transfer_id"`
	From        *StockRecordResponse `json:"from,omitempty"`
	To          *StockRecordResponse `json:"to,omitempty"`
	Movements   []MovementResponse   `json:"movements"`
	Compensated bool                 `json:"compensated"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un SKU en o bajo su stock mínimo.
type ReplenishmentSuggestionDTO struct {
	ProductID         string          `json:"product_id"`
	SKU               string          `json:"sku"`
	ProductName       string          `json:"product_name"`
	BranchID          string          `json:"branch_id"`
	CurrentStock      int             `json:"current_stock"`
	MinStock          int             `json:"min_stock"`
	IdealStock        int             `json:"ideal_stock"`         // ceil(MinStock * 1.5)
	SuggestedOrderQty int             `json:"suggested_order_qty"` // IdealStock - CurrentStock
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Priority          int             `json:"priority"` // 1 = más urgente
}

// LedgerCheckResponse verificación del libro para un par producto+sucursal.
type LedgerCheckResponse struct {
	ProductID            string `json:"product_id"`
	BranchID             string `json:"branch_id"`
	Quantity             int    `json:"quantity"`
	LastMovementQuantity int    `json:"last_movement_quantity"`
	SumOfDeltas          int    `json:"sum_of_deltas"`
	Movements            int    `json:"movements"`
	ChainBreaks          int    `json:"chain_breaks"`
	Consistent           bool   `json:"consistent"`
}

// NewStockRecordResponse mapea la entidad.
func NewStockRecordResponse(rec *entity.StockRecord) StockRecordResponse {
	return StockRecordResponse{
		ProductID:       rec.ProductID,
		BranchID:        rec.BranchID,
		Quantity:        rec.Quantity,
		IsLowStock:      rec.IsLowStock,
		LastRestockDate: rec.LastRestockDate,
		LastSaleDate:    rec.LastSaleDate,
		UpdatedAt:       rec.UpdatedAt,
	}
}

// NewMovementResponse mapea la entidad.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:                  m.ID,
		Seq:                 m.Seq,
		ProductID:           m.ProductID,
		BranchID:            m.BranchID,
		Type:                m.Type,
		QuantityDelta:       m.QuantityDelta,
		PreviousQuantity:    m.PreviousQuantity,
		NewQuantity:         m.NewQuantity,
		PerformedBy:         m.PerformedBy,
		Reason:              m.Reason,
		Notes:               m.Notes,
		ReferenceType:       m.ReferenceType,
		ReferenceID:         m.ReferenceID,
		CounterpartBranchID: m.CounterpartBranchID,
		CreatedAt:           m.CreatedAt,
	}
}

// NewMovementResponses mapea una lista.
func NewMovementResponses(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, NewMovementResponse(m))
	}
	return out
}
