package repository

import (
	"context"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// MovementFilter filtros del libro de movimientos; campos vacíos no filtran.
type MovementFilter struct {
	ProductID     string
	BranchID      string
	Type          string
	ReferenceType string
	ReferenceID   string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// StockMovementRepository puerto del libro de movimientos (solo inserción).
type StockMovementRepository interface {
	// Append asigna Seq y persiste el movimiento.
	Append(ctx context.Context, m *entity.StockMovement) error
	// ListByPair devuelve los movimientos del par en orden de inserción.
	ListByPair(ctx context.Context, productID, branchID string) ([]*entity.StockMovement, error)
	// Last devuelve el último movimiento del par o nil, nil.
	Last(ctx context.Context, productID, branchID string) (*entity.StockMovement, error)
	List(ctx context.Context, f MovementFilter) ([]*entity.StockMovement, error)
}
