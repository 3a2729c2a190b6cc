package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                = errors.New("recurso no encontrado")
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrDuplicateReference      = errors.New("referencia duplicada")
	ErrForbidden               = errors.New("acceso denegado")
	ErrConflict                = errors.New("conflicto con el estado actual")
	ErrInactive                = errors.New("recurso inactivo")
	ErrInsufficientStock       = errors.New("stock insuficiente")
	ErrExceededOrderedQuantity = errors.New("cantidad recibida supera la ordenada")
	ErrInvalidStateTransition  = errors.New("transición de estado inválida")
	ErrTransferCompensated     = errors.New("traslado revertido con ajuste compensatorio")
)

// StockShortage detalle de un producto sin stock suficiente en una sucursal.
type StockShortage struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
	Shortfall int    `json:"shortfall"`
}

// InsufficientStockError se produce cuando un movimiento dejaría la cantidad en negativo.
// Una venta puede reportar varios productos a la vez.
type InsufficientStockError struct {
	Shortages []StockShortage
}

// NewInsufficientStock construye el error para un único par producto/sucursal.
func NewInsufficientStock(productID, branchID string, available, requested int) *InsufficientStockError {
	return &InsufficientStockError{Shortages: []StockShortage{{
		ProductID: productID,
		BranchID:  branchID,
		Available: available,
		Requested: requested,
		Shortfall: requested - available,
	}}}
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s@%s disponible=%d solicitado=%d faltante=%d",
			s.ProductID, s.BranchID, s.Available, s.Requested, s.Shortfall))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ExcessItem línea de orden de compra cuya recepción superaría lo ordenado.
type ExcessItem struct {
	ItemID          string `json:"item_id"`
	ProductID       string `json:"product_id"`
	Ordered         int    `json:"ordered"`
	AlreadyReceived int    `json:"already_received"`
	Requested       int    `json:"requested"`
}

// ExceededOrderedQuantityError rechaza un lote de recepción completo.
type ExceededOrderedQuantityError struct {
	Items []ExcessItem
}

func (e *ExceededOrderedQuantityError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("item %s ordenado=%d recibido=%d nuevo=%d",
			it.ItemID, it.Ordered, it.AlreadyReceived, it.Requested))
	}
	return ErrExceededOrderedQuantity.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ExceededOrderedQuantityError) Is(target error) bool {
	return target == ErrExceededOrderedQuantity
}

// InvalidStateTransitionError acción no permitida desde el estado actual.
type InvalidStateTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s: %s no permitido desde %s", ErrInvalidStateTransition.Error(), e.Action, e.From)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// NotFoundError referencia desconocida (producto, sucursal, orden, ítem, venta).
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrNotFound.Error(), e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateReferenceError número de documento ya usado (factura, orden de compra).
type DuplicateReferenceError struct {
	Kind  string
	Value string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrDuplicateReference.Error(), e.Kind, e.Value)
}

func (e *DuplicateReferenceError) Is(target error) bool { return target == ErrDuplicateReference }

// IsBusinessError indica si err es un rechazo de reglas de negocio y no una falla de almacenamiento.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidInput, ErrDuplicateReference, ErrForbidden, ErrConflict, ErrInactive,
		ErrInsufficientStock, ErrExceededOrderedQuantity, ErrInvalidStateTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
