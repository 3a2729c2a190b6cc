package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// TransferInput traslado de unidades entre dos sucursales.
type TransferInput struct {
	ProductID    string
	FromBranchID string
	ToBranchID   string
	Quantity     int
	ActorID      string
	Notes        string
}

// TransferResult resultado del traslado. Si Compensated es true el destino falló y
// Movements contiene la salida de origen y su ajuste compensatorio.
type TransferResult struct {
	TransferID  string
	From        *entity.StockRecord
	To          *entity.StockRecord
	Movements   []*entity.StockMovement
	Compensated bool
}

// Transfer descuenta del origen y suma al destino en una sola transacción.
// Ambos registros se bloquean en orden canónico antes de mutar, así dos traslados en
// sentido opuesto entre las mismas sucursales no se bloquean mutuamente.
// Si el destino falla por una regla de negocio, se registra un ADJUSTMENT que devuelve
// las unidades al origen y se retorna ErrTransferCompensated envolviendo la causa.
func (e *Engine) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: la cantidad a trasladar debe ser positiva", domain.ErrInvalidInput)
	}
	if in.FromBranchID == in.ToBranchID {
		return nil, &domain.InvalidStateTransitionError{
			Entity: "traslado",
			From:   in.FromBranchID,
			Action: "trasladar a la misma sucursal",
		}
	}
	if _, err := e.Product(ctx, in.ProductID); err != nil {
		return nil, err
	}
	if _, err := e.ActiveBranch(ctx, in.FromBranchID); err != nil {
		return nil, err
	}
	if _, err := e.ActiveBranch(ctx, in.ToBranchID); err != nil {
		return nil, err
	}

	transferID := uuid.New().String()
	var (
		res   *TransferResult
		cause error
	)
	err := e.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		res = &TransferResult{TransferID: transferID}
		cause = nil

		keys := []entity.StockKey{
			{ProductID: in.ProductID, BranchID: in.FromBranchID},
			{ProductID: in.ProductID, BranchID: in.ToBranchID},
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
		for _, k := range keys {
			if _, err := repos.Stock.GetForUpdate(ctx, k.ProductID, k.BranchID); err != nil {
				return err
			}
		}

		source, err := repos.Stock.Get(ctx, in.ProductID, in.FromBranchID)
		if err != nil {
			return err
		}
		if source.Quantity < in.Quantity {
			return domain.NewInsufficientStock(in.ProductID, in.FromBranchID, source.Quantity, in.Quantity)
		}

		from, outMov, err := e.ApplyInTx(ctx, repos, MovementInput{
			ProductID:           in.ProductID,
			BranchID:            in.FromBranchID,
			Delta:               -in.Quantity,
			Type:                entity.MovementTypeTRANSFER,
			ActorID:             in.ActorID,
			Reason:              "traslado a sucursal " + in.ToBranchID,
			Notes:               in.Notes,
			ReferenceType:       entity.ReferenceTransfer,
			ReferenceID:         transferID,
			CounterpartBranchID: in.ToBranchID,
		})
		if err != nil {
			return err
		}
		res.From = from
		res.Movements = append(res.Movements, outMov)

		to, inMov, err := e.ApplyInTx(ctx, repos, MovementInput{
			ProductID:           in.ProductID,
			BranchID:            in.ToBranchID,
			Delta:               in.Quantity,
			Type:                entity.MovementTypeTRANSFER,
			ActorID:             in.ActorID,
			Reason:              "traslado desde sucursal " + in.FromBranchID,
			Notes:               in.Notes,
			ReferenceType:       entity.ReferenceTransfer,
			ReferenceID:         transferID,
			CounterpartBranchID: in.FromBranchID,
		})
		if err == nil {
			res.To = to
			res.Movements = append(res.Movements, inMov)
			return nil
		}
		if !domain.IsBusinessError(err) {
			return err
		}

		// Compensación: devolver al origen lo descontado, referenciando el traslado fallido
		restored, compMov, cerr := e.ApplyInTx(ctx, repos, MovementInput{
			ProductID:     in.ProductID,
			BranchID:      in.FromBranchID,
			Delta:         in.Quantity,
			Type:          entity.MovementTypeADJUSTMENT,
			ActorID:       in.ActorID,
			Reason:        "compensación de traslado fallido",
			Notes:         err.Error(),
			ReferenceType: entity.ReferenceTransfer,
			ReferenceID:   transferID,
		})
		if cerr != nil {
			return multierr.Combine(err, cerr)
		}
		res.From = restored
		res.Movements = append(res.Movements, compMov)
		res.Compensated = true
		cause = err
		return nil
	})
	if err != nil {
		e.Reject(ctx, "transfer", err)
		return nil, err
	}

	e.Publish(ctx, res.Movements...)
	if cause != nil {
		e.log.Warn().
			Err(cause).
			Str("transfer_id", transferID).
			Str("product_id", in.ProductID).
			Str("from_branch_id", in.FromBranchID).
			Str("to_branch_id", in.ToBranchID).
			Msg("traslado compensado")
		e.Reject(ctx, "transfer", cause)
		return res, fmt.Errorf("%w: %w", domain.ErrTransferCompensated, cause)
	}
	e.log.Info().
		Str("transfer_id", transferID).
		Str("product_id", in.ProductID).
		Str("from_branch_id", in.FromBranchID).
		Str("to_branch_id", in.ToBranchID).
		Int("quantity", in.Quantity).
		Msg("traslado aplicado")
	return res, nil
}
