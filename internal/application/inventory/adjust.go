package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// Direcciones de ajuste manual.
const (
	AdjustIncrease = "INCREASE"
	AdjustDecrease = "DECREASE"
	AdjustSet      = "SET" // conteo físico: Quantity es la cantidad contada
)

// AdjustInput ajuste manual. Quantity lleva signo y debe coincidir con Direction:
// INCREASE > 0, DECREASE < 0, SET >= 0.
type AdjustInput struct {
	ProductID string
	BranchID  string
	Direction string
	Quantity  int
	ActorID   string
	Reason    string
	Notes     string
}

// Adjust aplica un movimiento ADJUSTMENT validando el signo contra la dirección pedida.
func (e *Engine) Adjust(ctx context.Context, in AdjustInput) (*entity.StockRecord, *entity.StockMovement, error) {
	switch in.Direction {
	case AdjustIncrease:
		if in.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: un aumento requiere cantidad positiva", domain.ErrInvalidInput)
		}
	case AdjustDecrease:
		if in.Quantity >= 0 {
			return nil, nil, fmt.Errorf("%w: una disminución requiere cantidad negativa", domain.ErrInvalidInput)
		}
	case AdjustSet:
		if in.Quantity < 0 {
			return nil, nil, fmt.Errorf("%w: el conteo no puede ser negativo", domain.ErrInvalidInput)
		}
	default:
		return nil, nil, fmt.Errorf("%w: dirección de ajuste %q", domain.ErrInvalidInput, in.Direction)
	}
	if in.Reason == "" {
		return nil, nil, fmt.Errorf("%w: el motivo del ajuste es obligatorio", domain.ErrInvalidInput)
	}
	if _, err := e.ActiveBranch(ctx, in.BranchID); err != nil {
		return nil, nil, err
	}

	adjustmentID := uuid.New().String()
	var (
		rec *entity.StockRecord
		mov *entity.StockMovement
	)
	err := e.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		delta := in.Quantity
		if in.Direction == AdjustSet {
			current, err := repos.Stock.GetForUpdate(ctx, in.ProductID, in.BranchID)
			if err != nil {
				return err
			}
			delta = in.Quantity - current.Quantity
			if delta == 0 {
				return fmt.Errorf("%w: el conteo coincide con el stock actual", domain.ErrInvalidInput)
			}
		}
		var err error
		rec, mov, err = e.ApplyInTx(ctx, repos, MovementInput{
			ProductID:     in.ProductID,
			BranchID:      in.BranchID,
			Delta:         delta,
			Type:          entity.MovementTypeADJUSTMENT,
			ActorID:       in.ActorID,
			Reason:        in.Reason,
			Notes:         in.Notes,
			ReferenceType: entity.ReferenceAdjustment,
			ReferenceID:   adjustmentID,
		})
		return err
	})
	if err != nil {
		e.Reject(ctx, "adjust", err)
		return nil, nil, err
	}
	e.Publish(ctx, mov)
	e.log.Info().
		Str("adjustment_id", adjustmentID).
		Str("product_id", in.ProductID).
		Str("branch_id", in.BranchID).
		Int("delta", mov.QuantityDelta).
		Int("new_quantity", rec.Quantity).
		Msg("ajuste de inventario aplicado")
	return rec, mov, nil
}
