package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

const entityName = "orden de compra"

// Service ciclo de vida de órdenes de compra:
// DRAFT -> PENDING -> APPROVED -> {PARTIALLY_RECEIVED} -> RECEIVED, o CANCELLED antes de RECEIVED.
type Service struct {
	txRunner repository.TxRunner
	engine   StockEngine
	orders   repository.PurchaseOrderRepository
	loc      *time.Location
	log      zerolog.Logger
}

// NewService construye el caso de uso. orders es el repositorio de lectura; loc define el día
// de la numeración PO-{YYYYMMDD}-{###}.
func NewService(
	txRunner repository.TxRunner,
	engine StockEngine,
	orders repository.PurchaseOrderRepository,
	loc *time.Location,
	log zerolog.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{txRunner: txRunner, engine: engine, orders: orders, loc: loc, log: log}
}

// ItemInput línea ordenada.
type ItemInput struct {
	ProductID  string
	OrderedQty int
	UnitCost   decimal.Decimal
}

// CreateInput datos de una orden nueva (queda en DRAFT).
type CreateInput struct {
	SupplierID   string
	BranchID     string
	CreatedBy    string
	Notes        string
	ExpectedDate *time.Time
	TaxAmount    decimal.Decimal
	Discount     decimal.Decimal
	Items        []ItemInput
}

// UpdateInput reemplaza cabecera editable y el conjunto completo de líneas. SupplierID vacío lo conserva.
type UpdateInput struct {
	SupplierID   string
	Notes        string
	ExpectedDate *time.Time
	TaxAmount    decimal.Decimal
	Discount     decimal.Decimal
	Items        []ItemInput
}

// ReceiveLine cantidad recibida ahora para una línea.
type ReceiveLine struct {
	ItemID   string
	Quantity int
}

// ReceiveInput lote de recepción. ReceivedDate nil usa la hora actual.
type ReceiveInput struct {
	ActorID      string
	ReceivedDate *time.Time
	Items        []ReceiveLine
}

func (s *Service) buildItems(ctx context.Context, poID string, in []ItemInput) ([]entity.PurchaseOrderItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: la orden requiere al menos un ítem", domain.ErrInvalidInput)
	}
	items := make([]entity.PurchaseOrderItem, 0, len(in))
	for _, it := range in {
		if it.ProductID == "" || it.OrderedQty <= 0 {
			return nil, fmt.Errorf("%w: cada ítem requiere producto y cantidad positiva", domain.ErrInvalidInput)
		}
		if it.UnitCost.IsNegative() {
			return nil, fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
		}
		if _, err := s.engine.Product(ctx, it.ProductID); err != nil {
			return nil, err
		}
		items = append(items, entity.PurchaseOrderItem{
			ID:         uuid.New().String(),
			POID:       poID,
			ProductID:  it.ProductID,
			OrderedQty: it.OrderedQty,
			UnitCost:   it.UnitCost,
			Subtotal:   it.UnitCost.Mul(decimal.NewFromInt(int64(it.OrderedQty))).Round(2),
		})
	}
	return items, nil
}

// recalcTotals subtotal = Σ cantidad × costo; total = subtotal + impuesto - descuento, nunca negativo.
func recalcTotals(po *entity.PurchaseOrder) {
	po.Subtotal = decimal.Zero
	for _, it := range po.Items {
		po.Subtotal = po.Subtotal.Add(it.Subtotal)
	}
	po.Total = po.Subtotal.Add(po.TaxAmount).Sub(po.Discount)
	if po.Total.IsNegative() {
		po.Total = decimal.Zero
	}
}

// Create registra una orden en DRAFT con número PO-{YYYYMMDD}-{###}.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.PurchaseOrder, error) {
	if in.SupplierID == "" || in.BranchID == "" || in.CreatedBy == "" {
		return nil, fmt.Errorf("%w: proveedor, sucursal y usuario son obligatorios", domain.ErrInvalidInput)
	}
	if in.TaxAmount.IsNegative() || in.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: impuesto y descuento no pueden ser negativos", domain.ErrInvalidInput)
	}
	if _, err := s.engine.ActiveBranch(ctx, in.BranchID); err != nil {
		return nil, err
	}
	poID := uuid.New().String()
	items, err := s.buildItems(ctx, poID, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.engine.Now()
	po := &entity.PurchaseOrder{
		ID:           poID,
		SupplierID:   in.SupplierID,
		BranchID:     in.BranchID,
		Status:       entity.POStatusDraft,
		TaxAmount:    in.TaxAmount,
		Discount:     in.Discount,
		Notes:        in.Notes,
		CreatedBy:    in.CreatedBy,
		ExpectedDate: in.ExpectedDate,
		CreatedAt:    now,
		UpdatedAt:    now,
		Items:        items,
	}
	recalcTotals(po)

	local := now.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	for attempt := 0; ; attempt++ {
		err = s.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
			seq, err := repos.Sequences.Next(ctx, repository.SequencePurchaseOrder, "", day)
			if err != nil {
				return err
			}
			po.PONumber = fmt.Sprintf("PO-%s-%03d", day.Format("20060102"), seq)
			return repos.Orders.Create(ctx, po)
		})
		if err == nil {
			break
		}
		if attempt == 0 && errors.Is(err, domain.ErrDuplicateReference) {
			continue
		}
		return nil, err
	}
	s.log.Info().Str("po_id", po.ID).Str("po_number", po.PONumber).Msg("orden de compra creada")
	return po, nil
}

// transition bloquea la orden, valida la acción contra el estado actual y persiste la mutación.
func (s *Service) transition(ctx context.Context, id, action string, mutate func(po *entity.PurchaseOrder, now time.Time) error) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		po, err := repos.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return &domain.NotFoundError{Entity: entityName, ID: id}
		}
		if !po.Allows(action) {
			return &domain.InvalidStateTransitionError{Entity: entityName, From: po.Status, Action: action}
		}
		now := s.engine.Now()
		if err := mutate(po, now); err != nil {
			return err
		}
		po.UpdatedAt = now
		if err := repos.Orders.Update(ctx, po); err != nil {
			return err
		}
		out = po
		return nil
	})
	if err != nil {
		s.engine.Reject(ctx, "purchase_order_"+action, err)
		return nil, err
	}
	s.log.Info().Str("po_id", out.ID).Str("po_number", out.PONumber).Str("action", action).Str("status", out.Status).Msg("orden de compra actualizada")
	return out, nil
}

// Update solo en DRAFT: reemplaza las líneas y recalcula totales.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*entity.PurchaseOrder, error) {
	if in.TaxAmount.IsNegative() || in.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: impuesto y descuento no pueden ser negativos", domain.ErrInvalidInput)
	}
	items, err := s.buildItems(ctx, id, in.Items)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, entity.POActionUpdate, func(po *entity.PurchaseOrder, _ time.Time) error {
		if in.SupplierID != "" {
			po.SupplierID = in.SupplierID
		}
		po.Notes = in.Notes
		po.ExpectedDate = in.ExpectedDate
		po.TaxAmount = in.TaxAmount
		po.Discount = in.Discount
		po.Items = items
		recalcTotals(po)
		return nil
	})
}

// Submit DRAFT -> PENDING.
func (s *Service) Submit(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POActionSubmit, func(po *entity.PurchaseOrder, _ time.Time) error {
		po.Status = entity.POStatusPending
		return nil
	})
}

// Approve PENDING -> APPROVED; registra el aprobador.
func (s *Service) Approve(ctx context.Context, id, approverID string) (*entity.PurchaseOrder, error) {
	if approverID == "" {
		return nil, fmt.Errorf("%w: aprobador obligatorio", domain.ErrInvalidInput)
	}
	return s.transition(ctx, id, entity.POActionApprove, func(po *entity.PurchaseOrder, now time.Time) error {
		po.Status = entity.POStatusApproved
		po.ApprovedBy = approverID
		po.ApprovedAt = &now
		return nil
	})
}

// Cancel pasa a CANCELLED desde cualquier estado no terminal y agrega el motivo a las notas.
// No revierte el stock ya recibido.
func (s *Service) Cancel(ctx context.Context, id, actorID, reason string) (*entity.PurchaseOrder, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: el motivo es obligatorio", domain.ErrInvalidInput)
	}
	return s.transition(ctx, id, entity.POActionCancel, func(po *entity.PurchaseOrder, _ time.Time) error {
		po.Status = entity.POStatusCancelled
		po.Notes = strings.TrimSpace(po.Notes + "\n[CANCELADA] " + reason)
		return nil
	})
}

// Delete elimina definitivamente una orden DRAFT o CANCELLED.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		po, err := repos.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return &domain.NotFoundError{Entity: entityName, ID: id}
		}
		if !po.Allows(entity.POActionDelete) {
			return &domain.InvalidStateTransitionError{Entity: entityName, From: po.Status, Action: entity.POActionDelete}
		}
		return repos.Orders.Delete(ctx, id)
	})
	if err != nil {
		s.engine.Reject(ctx, "purchase_order_delete", err)
		return err
	}
	s.log.Info().Str("po_id", id).Msg("orden de compra eliminada")
	return nil
}

// Receive registra un lote de recepción: valida todas las líneas antes de tocar nada, suma
// receivedQty, emite un IN por línea recibida y recalcula el estado, todo en una transacción.
func (s *Service) Receive(ctx context.Context, id string, in ReceiveInput) (*entity.PurchaseOrder, error) {
	if in.ActorID == "" || len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: usuario e ítems son obligatorios", domain.ErrInvalidInput)
	}

	var (
		out       *entity.PurchaseOrder
		movements []*entity.StockMovement
	)
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		movements = nil
		po, err := repos.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return &domain.NotFoundError{Entity: entityName, ID: id}
		}
		if !po.Allows(entity.POActionReceive) {
			return &domain.InvalidStateTransitionError{Entity: entityName, From: po.Status, Action: entity.POActionReceive}
		}
		if _, err := s.engine.ActiveBranch(ctx, po.BranchID); err != nil {
			return err
		}

		// Validación completa del lote antes de aplicar (todo o nada)
		received := make(map[string]int)
		total := 0
		for _, line := range in.Items {
			if line.Quantity < 0 {
				return fmt.Errorf("%w: cantidad negativa para el ítem %s", domain.ErrInvalidInput, line.ItemID)
			}
			if _, ok := po.ItemByID(line.ItemID); !ok {
				return &domain.NotFoundError{Entity: "ítem de orden de compra", ID: line.ItemID}
			}
			received[line.ItemID] += line.Quantity
			total += line.Quantity
		}
		if total == 0 {
			return fmt.Errorf("%w: el lote no recibe ninguna unidad", domain.ErrInvalidInput)
		}
		var excess []domain.ExcessItem
		for _, it := range po.Items {
			qty, ok := received[it.ID]
			if ok && it.ReceivedQty+qty > it.OrderedQty {
				excess = append(excess, domain.ExcessItem{
					ItemID:          it.ID,
					ProductID:       it.ProductID,
					Ordered:         it.OrderedQty,
					AlreadyReceived: it.ReceivedQty,
					Requested:       qty,
				})
			}
		}
		if len(excess) > 0 {
			return &domain.ExceededOrderedQuantityError{Items: excess}
		}

		// Aplicar en orden canónico de producto
		idx := make([]int, 0, len(received))
		for i, it := range po.Items {
			if received[it.ID] > 0 {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return po.Items[idx[a]].ProductID < po.Items[idx[b]].ProductID
		})
		for _, i := range idx {
			item := &po.Items[i]
			qty := received[item.ID]
			_, mov, err := s.engine.ApplyInTx(ctx, repos, inventory.MovementInput{
				ProductID:     item.ProductID,
				BranchID:      po.BranchID,
				Delta:         qty,
				Type:          entity.MovementTypeIN,
				ActorID:       in.ActorID,
				Reason:        "recepción de orden " + po.PONumber,
				ReferenceType: entity.ReferencePurchaseOrder,
				ReferenceID:   po.ID,
			})
			if err != nil {
				return err
			}
			item.ReceivedQty += qty
			movements = append(movements, mov)
		}

		now := s.engine.Now()
		if po.IsFullyReceived() {
			po.Status = entity.POStatusReceived
		} else {
			po.Status = entity.POStatusPartiallyReceived
		}
		po.ReceivedBy = in.ActorID
		receivedAt := now
		if in.ReceivedDate != nil {
			receivedAt = *in.ReceivedDate
		}
		po.ReceivedDate = &receivedAt
		po.UpdatedAt = now
		if err := repos.Orders.Update(ctx, po); err != nil {
			return err
		}
		out = po
		return nil
	})
	if err != nil {
		s.engine.Reject(ctx, "purchase_order_receive", err)
		return nil, err
	}
	s.engine.Publish(ctx, movements...)
	s.log.Info().
		Str("po_id", out.ID).
		Str("po_number", out.PONumber).
		Str("status", out.Status).
		Int("movements", len(movements)).
		Msg("recepción de orden de compra registrada")
	return out, nil
}

// Get devuelve la orden o NotFoundError.
func (s *Service) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, &domain.NotFoundError{Entity: entityName, ID: id}
	}
	return po, nil
}

// List lista órdenes con filtros.
func (s *Service) List(ctx context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	return s.orders.List(ctx, f)
}
