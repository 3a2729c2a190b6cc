package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden de compra.
const (
	POStatusDraft             = "DRAFT"
	POStatusPending           = "PENDING"
	POStatusApproved          = "APPROVED"
	POStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	POStatusReceived          = "RECEIVED"
	POStatusCancelled         = "CANCELLED"
)

// PurchaseOrder orden de compra a proveedor con destino a una sucursal.
type PurchaseOrder struct {
	ID           string
	PONumber     string // PO-{YYYYMMDD}-{###}
	SupplierID   string
	BranchID     string
	Status       string
	Subtotal     decimal.Decimal
	TaxAmount    decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	Notes        string
	CreatedBy    string
	ApprovedBy   string
	ApprovedAt   *time.Time
	ReceivedBy   string
	ReceivedDate *time.Time
	ExpectedDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []PurchaseOrderItem
}

// PurchaseOrderItem línea ordenada; 0 <= ReceivedQty <= OrderedQty.
type PurchaseOrderItem struct {
	ID          string
	POID        string
	ProductID   string
	OrderedQty  int
	ReceivedQty int
	UnitCost    decimal.Decimal
	Subtotal    decimal.Decimal
}

// Pending cantidad pendiente por recibir.
func (i PurchaseOrderItem) Pending() int { return i.OrderedQty - i.ReceivedQty }

// IsFullyReceived todas las líneas completas.
func (po *PurchaseOrder) IsFullyReceived() bool {
	for _, it := range po.Items {
		if it.ReceivedQty != it.OrderedQty {
			return false
		}
	}
	return len(po.Items) > 0
}

// ItemByID busca una línea por id.
func (po *PurchaseOrder) ItemByID(id string) (int, bool) {
	for i := range po.Items {
		if po.Items[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone copia profunda (líneas y fechas).
func (po *PurchaseOrder) Clone() *PurchaseOrder {
	if po == nil {
		return nil
	}
	c := *po
	c.Items = append([]PurchaseOrderItem(nil), po.Items...)
	if po.ApprovedAt != nil {
		t := *po.ApprovedAt
		c.ApprovedAt = &t
	}
	if po.ReceivedDate != nil {
		t := *po.ReceivedDate
		c.ReceivedDate = &t
	}
	if po.ExpectedDate != nil {
		t := *po.ExpectedDate
		c.ExpectedDate = &t
	}
	return &c
}

// Acciones del ciclo de vida de la orden de compra.
const (
	POActionUpdate  = "update"
	POActionSubmit  = "submit"
	POActionApprove = "approve"
	POActionReceive = "receive"
	POActionCancel  = "cancel"
	POActionDelete  = "delete"
)

var poAllowedFrom = map[string][]string{
	POActionUpdate:  {POStatusDraft},
	POActionSubmit:  {POStatusDraft},
	POActionApprove: {POStatusPending},
	POActionReceive: {POStatusApproved, POStatusPartiallyReceived},
	POActionCancel:  {POStatusDraft, POStatusPending, POStatusApproved, POStatusPartiallyReceived},
	POActionDelete:  {POStatusDraft, POStatusCancelled},
}

// Allows indica si la acción es válida desde el estado actual.
func (po *PurchaseOrder) Allows(action string) bool {
	for _, s := range poAllowedFrom[action] {
		if po.Status == s {
			return true
		}
	}
	return false
}
