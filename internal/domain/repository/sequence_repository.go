package repository

import (
	"context"
	"time"
)

// Ámbitos de numeración de documentos.
const (
	SequenceInvoice       = "INVOICE"
	SequencePurchaseOrder = "PURCHASE_ORDER"
)

// SequenceRepository contador atómico por (scope, key, día).
// El incremento queda bloqueado hasta el commit de la transacción que lo pidió.
type SequenceRepository interface {
	Next(ctx context.Context, scope, key string, day time.Time) (int, error)
}
