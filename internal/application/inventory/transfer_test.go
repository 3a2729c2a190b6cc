package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/memory"
)

// failingStock falla el Save de una sucursal concreta con el error indicado.
type failingStock struct {
	repository.StockRepository
	branchID string
	err      error
}

func (s failingStock) Save(ctx context.Context, rec *entity.StockRecord) error {
	if rec.BranchID == s.branchID {
		return s.err
	}
	return s.StockRepository.Save(ctx, rec)
}

// failingRunner envuelve el runner y sustituye el repositorio de stock de cada tx.
type failingRunner struct {
	inner repository.TxRunner
	stock func(repository.StockRepository) repository.StockRepository
}

func (r failingRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		repos.Stock = r.stock(repos.Stock)
		return fn(ctx, repos)
	})
}

func engineFailingOn(f *fixture, branchID string, err error) *inventory.Engine {
	runner := failingRunner{inner: f.store.TxRunner(), stock: func(s repository.StockRepository) repository.StockRepository {
		return failingStock{StockRepository: s, branchID: branchID, err: err}
	}}
	return inventory.NewEngine(runner, f.store.Products(), f.store.Branches(), zerolog.Nop(), f.obs)
}

func TestTransfer_ConservaUnidades(t *testing.T) {
	f := newFixture(t)
	f.receive(t, prodArroz, branchCen, 10)

	res, err := f.engine.Transfer(context.Background(), inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchNor, Quantity: 4, ActorID: actor,
	})
	require.NoError(t, err)
	assert.False(t, res.Compensated)
	assert.Equal(t, 6, res.From.Quantity)
	assert.Equal(t, 4, res.To.Quantity)
	require.Len(t, res.Movements, 2)
	for _, m := range res.Movements {
		assert.Equal(t, entity.MovementTypeTRANSFER, m.Type)
		assert.Equal(t, entity.ReferenceTransfer, m.ReferenceType)
		assert.Equal(t, res.TransferID, m.ReferenceID)
	}
	assert.Equal(t, branchNor, res.Movements[0].CounterpartBranchID)
	assert.Equal(t, branchCen, res.Movements[1].CounterpartBranchID)

	assert.Equal(t, 10, f.quantity(t, prodArroz, branchCen)+f.quantity(t, prodArroz, branchNor))
	f.assertConsistent(t, prodArroz, branchCen)
	f.assertConsistent(t, prodArroz, branchNor)
}

func TestTransfer_OrigenSinStock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, prodArroz, branchCen, 2)

	_, err := f.engine.Transfer(context.Background(), inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchNor, Quantity: 3, ActorID: actor,
	})
	var shortage *domain.InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, branchCen, shortage.Shortages[0].BranchID)
	assert.Equal(t, 2, f.quantity(t, prodArroz, branchCen))
	assert.Equal(t, 0, f.quantity(t, prodArroz, branchNor))
}

func TestTransfer_MismaSucursal(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Transfer(context.Background(), inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchCen, Quantity: 1, ActorID: actor,
	})
	var transition *domain.InvalidStateTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestTransfer_DestinoInactivo(t *testing.T) {
	f := newFixture(t)
	f.receive(t, prodArroz, branchCen, 5)
	_, err := f.engine.Transfer(context.Background(), inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchSur, Quantity: 1, ActorID: actor,
	})
	assert.ErrorIs(t, err, domain.ErrInactive)
	assert.Equal(t, 5, f.quantity(t, prodArroz, branchCen))
}

func TestTransfer_FalloDeDestinoSeCompensa(t *testing.T) {
	f := newFixture(t)
	f.receive(t, prodArroz, branchCen, 10)
	engine := engineFailingOn(f, branchNor, domain.ErrConflict)

	res, err := engine.Transfer(context.Background(), inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchNor, Quantity: 4, ActorID: actor,
	})
	require.ErrorIs(t, err, domain.ErrTransferCompensated)
	assert.ErrorIs(t, err, domain.ErrConflict, "la causa original viaja envuelta")
	require.NotNil(t, res)
	assert.True(t, res.Compensated)
	assert.Equal(t, 10, res.From.Quantity)

	require.Len(t, res.Movements, 2)
	assert.Equal(t, entity.MovementTypeTRANSFER, res.Movements[0].Type)
	assert.Equal(t, -4, res.Movements[0].QuantityDelta)
	assert.Equal(t, entity.MovementTypeADJUSTMENT, res.Movements[1].Type)
	assert.Equal(t, 4, res.Movements[1].QuantityDelta)
	assert.Equal(t, res.TransferID, res.Movements[1].ReferenceID)

	assert.Equal(t, 10, f.quantity(t, prodArroz, branchCen))
	assert.Equal(t, 0, f.quantity(t, prodArroz, branchNor))
	f.assertConsistent(t, prodArroz, branchCen)
	assert.Contains(t, f.obs.rejected, "transfer")
}

func TestTransfer_FalloDeCompensacionRevierteTodo(t *testing.T) {
	f := newFixture(t)
	f.receive(t, prodArroz, branchCen, 10)

	// el destino falla con un error de negocio y el origen con una falla de almacenamiento
	// solo en la segunda escritura (la compensación)
	saves := 0
	storageErr := errors.New("disco lleno")
	runner := failingRunner{inner: f.store.TxRunner(), stock: func(s repository.StockRepository) repository.StockRepository {
		return countingStock{StockRepository: s, onSave: func(rec *entity.StockRecord) error {
			if rec.BranchID == branchNor {
				return domain.ErrConflict
			}
			saves++
			if saves > 1 {
				return storageErr
			}
			return nil
		}}
	}}
	engine := inventory.NewEngine(runner, f.store.Products(), f.store.Branches(), zerolog.Nop(), f.obs)

	res, err := engine.Transfer(context.Background(), inventory.TransferInput{
		ProductID: prodArroz, FromBranchID: branchCen, ToBranchID: branchNor, Quantity: 4, ActorID: actor,
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, err, storageErr)
	assert.NotErrorIs(t, err, domain.ErrTransferCompensated)

	assert.Equal(t, 10, f.quantity(t, prodArroz, branchCen), "la tx completa se revierte")
	f.assertConsistent(t, prodArroz, branchCen)
}

// countingStock delega Save en onSave antes de escribir.
type countingStock struct {
	repository.StockRepository
	onSave func(rec *entity.StockRecord) error
}

func (s countingStock) Save(ctx context.Context, rec *entity.StockRecord) error {
	if err := s.onSave(rec); err != nil {
		return err
	}
	return s.StockRepository.Save(ctx, rec)
}

func TestTransfer_SentidosOpuestosSinInterbloqueo(t *testing.T) {
	f := newFixture(t, memory.WithJitter(jitterLimit))
	f.receive(t, prodAceite, branchCen, 40)
	f.receive(t, prodAceite, branchNor, 40)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 30; i++ {
		from, to := branchCen, branchNor
		if i%2 == 1 {
			from, to = to, from
		}
		g.Go(func() error {
			_, err := f.engine.Transfer(gctx, inventory.TransferInput{
				ProductID: prodAceite, FromBranchID: from, ToBranchID: to, Quantity: 1 + i%3, ActorID: actor,
			})
			if err != nil && !errors.Is(err, domain.ErrInsufficientStock) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait(), "ningún traslado debe quedar esperando un bloqueo")

	assert.Equal(t, 80, f.quantity(t, prodAceite, branchCen)+f.quantity(t, prodAceite, branchNor))
	f.assertConsistent(t, prodAceite, branchCen)
	f.assertConsistent(t, prodAceite, branchNor)
}
