package repository

import (
	"context"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// PurchaseOrderFilter filtros del listado de órdenes de compra.
type PurchaseOrderFilter struct {
	BranchID   string
	SupplierID string
	Status     string
	Limit      int
	Offset     int
}

// PurchaseOrderRepository puerto de persistencia de órdenes de compra.
type PurchaseOrderRepository interface {
	// Create persiste cabecera y líneas; número repetido -> domain.DuplicateReferenceError.
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// GetForUpdate bloquea la orden hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// Update reemplaza cabecera y conjunto de líneas.
	Update(ctx context.Context, po *entity.PurchaseOrder) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f PurchaseOrderFilter) ([]*entity.PurchaseOrder, error)
}
