package purchasing

import (
	"context"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// StockEngine puerto hacia el motor de inventario; la recepción suma stock solo vía ApplyInTx.
type StockEngine interface {
	ApplyInTx(ctx context.Context, repos repository.TxRepos, in inventory.MovementInput) (*entity.StockRecord, *entity.StockMovement, error)
	Publish(ctx context.Context, movements ...*entity.StockMovement)
	Reject(ctx context.Context, operation string, err error)
	Product(ctx context.Context, id string) (*entity.Product, error)
	ActiveBranch(ctx context.Context, id string) (*entity.Branch, error)
	Now() time.Time
}
