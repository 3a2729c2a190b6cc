package repository

import (
	"context"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// SaleRepository puerto de persistencia de ventas y sus líneas.
type SaleRepository interface {
	// Create persiste cabecera y líneas; número de factura repetido -> domain.DuplicateReferenceError.
	Create(ctx context.Context, s *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	UpdateStatus(ctx context.Context, id, status, notes string, at time.Time) error
	// ListByBranch filtra por día de negocio si day no es nil.
	ListByBranch(ctx context.Context, branchID string, day *time.Time, limit, offset int) ([]*entity.Sale, error)
}
