package sales

import (
	"context"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// StockEngine puerto hacia el motor de inventario. Las ventas nunca tocan el stock directamente:
// cada línea pasa por ApplyInTx dentro de la transacción de la venta.
type StockEngine interface {
	ApplyInTx(ctx context.Context, repos repository.TxRepos, in inventory.MovementInput) (*entity.StockRecord, *entity.StockMovement, error)
	Publish(ctx context.Context, movements ...*entity.StockMovement)
	Reject(ctx context.Context, operation string, err error)
	Product(ctx context.Context, id string) (*entity.Product, error)
	Branch(ctx context.Context, id string) (*entity.Branch, error)
	ActiveBranch(ctx context.Context, id string) (*entity.Branch, error)
	Now() time.Time
}

// ReceiptRenderer genera el comprobante de una venta (PDF).
type ReceiptRenderer interface {
	SaleReceipt(sale *entity.Sale, branch *entity.Branch, products map[string]*entity.Product) ([]byte, error)
}
