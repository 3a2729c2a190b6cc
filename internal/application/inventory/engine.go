package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// Engine es el único componente que modifica el stock. Cada movimiento actualiza el registro
// (bloqueado con GetForUpdate) y agrega la fila del libro en la misma transacción.
type Engine struct {
	txRunner  repository.TxRunner
	products  repository.ProductCatalog
	branches  repository.BranchRegistry
	observers []MovementObserver
	log       zerolog.Logger
	now       func() time.Time
}

// NewEngine construye el motor de inventario.
func NewEngine(
	txRunner repository.TxRunner,
	products repository.ProductCatalog,
	branches repository.BranchRegistry,
	log zerolog.Logger,
	observers ...MovementObserver,
) *Engine {
	return &Engine{
		txRunner:  txRunner,
		products:  products,
		branches:  branches,
		observers: observers,
		log:       log,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now hora actual según el reloj del motor.
func (e *Engine) Now() time.Time { return e.now() }

// MovementInput entrada de applyMovement.
// Delta con signo: IN > 0, OUT < 0, ADJUSTMENT != 0, TRANSFER != 0 con sucursal contraparte.
type MovementInput struct {
	ProductID           string
	BranchID            string
	Delta               int
	Type                string
	ActorID             string
	Reason              string
	Notes               string
	ReferenceType       string
	ReferenceID         string
	CounterpartBranchID string
}

func validateMovement(in MovementInput) error {
	if in.ProductID == "" || in.BranchID == "" || in.ActorID == "" {
		return fmt.Errorf("%w: producto, sucursal y usuario son obligatorios", domain.ErrInvalidInput)
	}
	if in.Delta == 0 {
		return fmt.Errorf("%w: la cantidad no puede ser cero", domain.ErrInvalidInput)
	}
	switch in.Type {
	case entity.MovementTypeIN:
		if in.Delta < 0 {
			return fmt.Errorf("%w: una entrada requiere cantidad positiva", domain.ErrInvalidInput)
		}
	case entity.MovementTypeOUT:
		if in.Delta > 0 {
			return fmt.Errorf("%w: una salida requiere cantidad negativa", domain.ErrInvalidInput)
		}
	case entity.MovementTypeTRANSFER:
		if in.CounterpartBranchID == "" || in.CounterpartBranchID == in.BranchID {
			return fmt.Errorf("%w: un traslado requiere otra sucursal como contraparte", domain.ErrInvalidInput)
		}
	case entity.MovementTypeADJUSTMENT:
	default:
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Type)
	}
	return nil
}

// ApplyMovement aplica un movimiento en su propia transacción y devuelve el registro actualizado.
// Verifica que producto y sucursal existan.
func (e *Engine) ApplyMovement(ctx context.Context, in MovementInput) (*entity.StockRecord, error) {
	if err := validateMovement(in); err != nil {
		return nil, err
	}
	if _, err := e.Branch(ctx, in.BranchID); err != nil {
		return nil, err
	}

	var (
		rec *entity.StockRecord
		mov *entity.StockMovement
	)
	err := e.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		var err error
		rec, mov, err = e.ApplyInTx(ctx, repos, in)
		return err
	})
	if err != nil {
		e.Reject(ctx, "apply_movement", err)
		return nil, err
	}
	e.Publish(ctx, mov)
	return rec, nil
}

// ApplyInTx aplica el movimiento usando los repos de una transacción abierta por el caller
// (venta, recepción, traslado). No confirma ni notifica: eso es responsabilidad del caller.
func (e *Engine) ApplyInTx(ctx context.Context, repos repository.TxRepos, in MovementInput) (*entity.StockRecord, *entity.StockMovement, error) {
	if err := validateMovement(in); err != nil {
		return nil, nil, err
	}
	product, err := e.Product(ctx, in.ProductID)
	if err != nil {
		return nil, nil, err
	}

	// Bloquea la fila (SELECT FOR UPDATE) para serializar escritores del mismo par
	rec, err := repos.Stock.GetForUpdate(ctx, in.ProductID, in.BranchID)
	if err != nil {
		return nil, nil, err
	}
	prev := rec.Quantity
	next := prev + in.Delta
	if next < 0 {
		return nil, nil, domain.NewInsufficientStock(in.ProductID, in.BranchID, prev, -in.Delta)
	}

	now := e.now()
	rec.Quantity = next
	rec.IsLowStock = next <= product.MinStock
	rec.UpdatedAt = now
	switch in.Type {
	case entity.MovementTypeIN:
		rec.LastRestockDate = &now
	case entity.MovementTypeOUT:
		rec.LastSaleDate = &now
	}
	if err := repos.Stock.Save(ctx, rec); err != nil {
		return nil, nil, err
	}

	mov := &entity.StockMovement{
		ID:                  uuid.New().String(),
		ProductID:           in.ProductID,
		BranchID:            in.BranchID,
		Type:                in.Type,
		QuantityDelta:       in.Delta,
		PreviousQuantity:    prev,
		NewQuantity:         next,
		PerformedBy:         in.ActorID,
		Reason:              in.Reason,
		Notes:               in.Notes,
		ReferenceType:       in.ReferenceType,
		ReferenceID:         in.ReferenceID,
		CounterpartBranchID: in.CounterpartBranchID,
		CreatedAt:           now,
	}
	if err := repos.Movements.Append(ctx, mov); err != nil {
		return nil, nil, err
	}
	return rec, mov, nil
}

// Publish notifica a los observadores los movimientos ya confirmados.
func (e *Engine) Publish(ctx context.Context, movements ...*entity.StockMovement) {
	if len(movements) == 0 {
		return
	}
	for _, o := range e.observers {
		o.MovementsCommitted(ctx, movements)
	}
}

// Reject notifica a los observadores un rechazo de negocio (las fallas de almacenamiento no cuentan).
func (e *Engine) Reject(ctx context.Context, operation string, err error) {
	if !domain.IsBusinessError(err) {
		return
	}
	for _, o := range e.observers {
		o.OperationRejected(ctx, operation, err)
	}
}

// Product devuelve el producto o NotFoundError.
func (e *Engine) Product(ctx context.Context, id string) (*entity.Product, error) {
	p, err := e.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, &domain.NotFoundError{Entity: "producto", ID: id}
	}
	return p, nil
}

// Branch devuelve la sucursal o NotFoundError.
func (e *Engine) Branch(ctx context.Context, id string) (*entity.Branch, error) {
	b, err := e.branches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	if b == nil {
		return nil, &domain.NotFoundError{Entity: "sucursal", ID: id}
	}
	return b, nil
}

// ActiveBranch como Branch pero además exige que esté activa.
func (e *Engine) ActiveBranch(ctx context.Context, id string) (*entity.Branch, error) {
	b, err := e.Branch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrInactive, id)
	}
	return b, nil
}

// TxRunner expone el ejecutor transaccional para flujos que componen varios movimientos.
func (e *Engine) TxRunner() repository.TxRunner { return e.txRunner }
