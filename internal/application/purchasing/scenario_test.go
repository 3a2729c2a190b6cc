package purchasing_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/purchasing"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/sales"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo: venta, recepción, traslado y venta rechazada
// ──────────────────────────────────────────────────────────────────────────────

const branchNor = "b-norte"

type flow struct {
	store    *memory.Store
	engine   *inventory.Engine
	query    *inventory.StockQuery
	sales    *sales.Service
	purchase *purchasing.Service
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	store := memory.NewStore(memory.WithJitter(time.Millisecond))
	store.AddBranch(entity.Branch{ID: branchCen, Code: "CEN", Name: "Centro", IsActive: true})
	store.AddBranch(entity.Branch{ID: branchNor, Code: "NOR", Name: "Norte", IsActive: true})
	store.AddProduct(entity.Product{ID: prodArroz, SKU: "ARR-1", Name: "Arroz", Price: decimal.NewFromInt(1000), MinStock: 5, IsActive: true})

	repos := store.Repos()
	engine := inventory.NewEngine(store.TxRunner(), store.Products(), store.Branches(), zerolog.Nop())
	return &flow{
		store:    store,
		engine:   engine,
		query:    inventory.NewStockQuery(repos.Stock, repos.Movements, store.Products(), nil),
		sales:    sales.NewService(store.TxRunner(), engine, repos.Sales, nil, sales.Config{Location: time.UTC}, zerolog.Nop()),
		purchase: purchasing.NewService(store.TxRunner(), engine, repos.Orders, time.UTC, zerolog.Nop()),
	}
}

func (f *flow) quantity(t *testing.T, branchID string) int {
	t.Helper()
	rec, err := f.query.GetStock(context.Background(), prodArroz, branchID)
	require.NoError(t, err)
	return rec.Quantity
}

func (f *flow) lastMovement(t *testing.T, branchID string) *entity.StockMovement {
	t.Helper()
	mv, err := f.store.Repos().Movements.Last(context.Background(), prodArroz, branchID)
	require.NoError(t, err)
	require.NotNil(t, mv)
	return mv
}

func (f *flow) approvedOrder(t *testing.T, qty int) *entity.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	po, err := f.purchase.Create(ctx, purchasing.CreateInput{
		SupplierID: supplier,
		BranchID:   branchCen,
		CreatedBy:  buyer,
		Items:      []purchasing.ItemInput{{ProductID: prodArroz, OrderedQty: qty, UnitCost: decimal.NewFromInt(700)}},
	})
	require.NoError(t, err)
	_, err = f.purchase.Submit(ctx, po.ID)
	require.NoError(t, err)
	po, err = f.purchase.Approve(ctx, po.ID, approver)
	require.NoError(t, err)
	return po
}

func (f *flow) sell(ctx context.Context, qty int) (*entity.Sale, error) {
	return f.sales.CreateSale(ctx, sales.CreateSaleInput{
		BranchID:      branchCen,
		CashierID:     "u-caja",
		PaymentMethod: entity.PaymentCard,
		Items:         []sales.SaleLine{{ProductID: prodArroz, Quantity: qty}},
	})
}

func TestFlujo_VentaRecepcionTrasladoYVentaRechazada(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()

	_, err := f.engine.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: prodArroz, BranchID: branchCen, Delta: 10,
		Type: entity.MovementTypeIN, ActorID: "seed", Reason: "carga inicial",
	})
	require.NoError(t, err)

	// venta de 3
	sale, err := f.sell(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, f.quantity(t, branchCen))
	out := f.lastMovement(t, branchCen)
	assert.Equal(t, entity.MovementTypeOUT, out.Type)
	assert.Equal(t, 10, out.PreviousQuantity)
	assert.Equal(t, 7, out.NewQuantity)
	assert.Equal(t, entity.ReferenceSale, out.ReferenceType)
	assert.Equal(t, sale.ID, out.ReferenceID)

	// recepción de 5
	po := f.approvedOrder(t, 5)
	_, err = f.purchase.Receive(ctx, po.ID, purchasing.ReceiveInput{
		ActorID: buyer,
		Items:   []purchasing.ReceiveLine{{ItemID: po.Items[0].ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, f.quantity(t, branchCen))
	in := f.lastMovement(t, branchCen)
	assert.Equal(t, entity.MovementTypeIN, in.Type)
	assert.Equal(t, 7, in.PreviousQuantity)
	assert.Equal(t, 12, in.NewQuantity)
	assert.Equal(t, po.ID, in.ReferenceID)

	// traslado de 4 hacia la sucursal norte
	res, err := f.engine.Transfer(ctx, inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchNor, Quantity: 4, ActorID: "u-admin",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, f.quantity(t, branchCen))
	assert.Equal(t, 4, f.quantity(t, branchNor))
	require.Len(t, res.Movements, 2)
	for _, mv := range res.Movements {
		assert.Equal(t, entity.MovementTypeTRANSFER, mv.Type)
		assert.Equal(t, entity.ReferenceTransfer, mv.ReferenceType)
		assert.Equal(t, res.TransferID, mv.ReferenceID)
	}
	assert.Equal(t, branchNor, f.lastMovement(t, branchCen).CounterpartBranchID)
	assert.Equal(t, branchCen, f.lastMovement(t, branchNor).CounterpartBranchID)

	// venta de 20 contra 8 disponibles
	_, err = f.sell(ctx, 20)
	var shortage *domain.InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Shortages, 1)
	assert.Equal(t, 8, shortage.Shortages[0].Available)
	assert.Equal(t, 8, f.quantity(t, branchCen))

	for _, branchID := range []string{branchCen, branchNor} {
		check, err := f.query.VerifyPair(ctx, prodArroz, branchID)
		require.NoError(t, err)
		assert.True(t, check.Consistent, "libro de %s", branchID)
		assert.Zero(t, check.ChainBreaks)
	}
	movs, err := f.store.Repos().Movements.ListByPair(ctx, prodArroz, branchCen)
	require.NoError(t, err)
	assert.Len(t, movs, 4, "la venta rechazada no deja movimiento")
}

// ──────────────────────────────────────────────────────────────────────────────
// Recepciones concurrentes sobre la misma orden
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_ConcurrentesNoSuperanLoOrdenado(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	po := f.approvedOrder(t, 5)
	itemID := po.Items[0].ID

	var accepted, exceeded atomic.Int32
	var g errgroup.Group
	for range 2 {
		g.Go(func() error {
			_, err := f.purchase.Receive(ctx, po.ID, purchasing.ReceiveInput{
				ActorID: buyer,
				Items:   []purchasing.ReceiveLine{{ItemID: itemID, Quantity: 3}},
			})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domain.ErrExceededOrderedQuantity):
				exceeded.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(1), exceeded.Load())

	got, err := f.purchase.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Items[0].ReceivedQty)
	assert.Equal(t, entity.POStatusPartiallyReceived, got.Status)
	assert.Equal(t, 3, f.quantity(t, branchCen))
}

func TestReceive_MuchasRecepcionesCompletanSinExceso(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()
	po := f.approvedOrder(t, 10)
	itemID := po.Items[0].ID

	var accepted atomic.Int32
	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			_, err := f.purchase.Receive(ctx, po.ID, purchasing.ReceiveInput{
				ActorID: buyer,
				Items:   []purchasing.ReceiveLine{{ItemID: itemID, Quantity: 2}},
			})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domain.ErrExceededOrderedQuantity), errors.Is(err, domain.ErrInvalidStateTransition):
				// orden ya completa
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(5), accepted.Load())

	got, err := f.purchase.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Items[0].ReceivedQty)
	assert.Equal(t, entity.POStatusReceived, got.Status)
	assert.Equal(t, 10, f.quantity(t, branchCen))

	check, err := f.query.VerifyPair(ctx, prodArroz, branchCen)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, 5, check.Movements)
}
