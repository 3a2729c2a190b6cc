package sales

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

// Config política de ventas.
type Config struct {
	// RestockOnVoid reintegra el stock al anular o reembolsar una venta.
	RestockOnVoid bool
	// Location zona horaria que define el día calendario de la numeración.
	Location *time.Location
}

// Service procesador de ventas de punto de venta.
type Service struct {
	txRunner repository.TxRunner
	engine   StockEngine
	sales    repository.SaleRepository
	receipts ReceiptRenderer
	cfg      Config
	log      zerolog.Logger
}

// NewService construye el procesador. sales es el repositorio de lectura (fuera de tx).
func NewService(
	txRunner repository.TxRunner,
	engine StockEngine,
	sales repository.SaleRepository,
	receipts ReceiptRenderer,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		txRunner: txRunner,
		engine:   engine,
		sales:    sales,
		receipts: receipts,
		cfg:      cfg,
		log:      log,
	}
}

// SaleLine línea del carrito. UnitPrice nil toma el precio del catálogo.
type SaleLine struct {
	ProductID string
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CreateSaleInput carrito a cobrar.
type CreateSaleInput struct {
	BranchID      string
	CashierID     string
	CustomerID    string
	PaymentMethod string
	AmountPaid    *decimal.Decimal
	Discount      decimal.Decimal
	Notes         string
	Items         []SaleLine
}

type pricedLine struct {
	SaleLine
	product *entity.Product
	price   decimal.Decimal
}

// CreateSale valida el carrito, descuenta el stock de cada línea y emite la factura en una sola
// transacción: o se registra la venta completa o no queda rastro.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput) (*entity.Sale, error) {
	if in.BranchID == "" || in.CashierID == "" || len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: sucursal, cajero e ítems son obligatorios", domain.ErrInvalidInput)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = entity.PaymentCash
	}
	if !entity.IsValidPaymentMethod(in.PaymentMethod) {
		return nil, fmt.Errorf("%w: método de pago %q", domain.ErrInvalidInput, in.PaymentMethod)
	}
	if in.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: el descuento no puede ser negativo", domain.ErrInvalidInput)
	}

	branch, err := s.engine.ActiveBranch(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}

	// Validar productos y precios (fuera de la tx, solo lectura)
	lines := make([]pricedLine, 0, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: cada ítem requiere producto y cantidad positiva", domain.ErrInvalidInput)
		}
		product, err := s.engine.Product(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrInactive, product.ID)
		}
		price := product.Price
		if item.UnitPrice != nil {
			if item.UnitPrice.IsNegative() {
				return nil, fmt.Errorf("%w: precio negativo para %s", domain.ErrInvalidInput, item.ProductID)
			}
			price = *item.UnitPrice
		}
		lines = append(lines, pricedLine{SaleLine: item, product: product, price: price})
	}

	sale, err := buildSale(in, lines)
	if err != nil {
		return nil, err
	}

	var movements []*entity.StockMovement
	for attempt := 0; ; attempt++ {
		movements, err = s.persistSale(ctx, branch, sale, lines)
		if err == nil {
			break
		}
		// Carrera en la numeración: se reintenta una vez con un consecutivo nuevo
		if attempt == 0 && errors.Is(err, domain.ErrDuplicateReference) {
			s.log.Warn().Err(err).Str("branch_id", branch.ID).Msg("número de factura duplicado, reintentando")
			continue
		}
		s.engine.Reject(ctx, "create_sale", err)
		return nil, err
	}

	s.engine.Publish(ctx, movements...)
	s.log.Info().
		Str("sale_id", sale.ID).
		Str("invoice_number", sale.InvoiceNumber).
		Str("branch_id", sale.BranchID).
		Str("total", sale.Total.StringFixed(2)).
		Int("items", len(sale.Items)).
		Msg("venta registrada")
	return sale, nil
}

// buildSale calcula líneas y totales. Los ids y el número de factura se asignan en la tx.
func buildSale(in CreateSaleInput, lines []pricedLine) (*entity.Sale, error) {
	sale := &entity.Sale{
		BranchID:      in.BranchID,
		CashierID:     in.CashierID,
		CustomerID:    in.CustomerID,
		PaymentMethod: in.PaymentMethod,
		Discount:      in.Discount.Round(2),
		Status:        entity.SaleStatusCompleted,
		Notes:         in.Notes,
	}
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal := l.price.Mul(qty).Round(2)
		rate := taxRate(l.product.TaxRate)
		tax := subtotal.Mul(rate).Round(2)
		sale.Items = append(sale.Items, entity.SaleItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.price,
			TaxRate:   rate,
			Subtotal:  subtotal,
			TaxAmount: tax,
		})
		sale.Subtotal = sale.Subtotal.Add(subtotal)
		sale.TaxAmount = sale.TaxAmount.Add(tax)
	}
	sale.Total = sale.Subtotal.Add(sale.TaxAmount).Sub(sale.Discount)
	if sale.Total.IsNegative() {
		return nil, fmt.Errorf("%w: el descuento supera el total", domain.ErrInvalidInput)
	}

	switch {
	case in.PaymentMethod == entity.PaymentCash:
		if in.AmountPaid == nil || in.AmountPaid.LessThan(sale.Total) {
			return nil, fmt.Errorf("%w: el monto recibido no cubre el total %s", domain.ErrInvalidInput, sale.Total.StringFixed(2))
		}
		sale.AmountPaid = *in.AmountPaid
		sale.Change = in.AmountPaid.Sub(sale.Total)
	case in.AmountPaid != nil && in.AmountPaid.LessThan(sale.Total):
		return nil, fmt.Errorf("%w: el monto pagado no cubre el total %s", domain.ErrInvalidInput, sale.Total.StringFixed(2))
	default:
		sale.AmountPaid = sale.Total
		sale.Change = decimal.Zero
	}
	return sale, nil
}

// taxRate acepta tasas como fracción (0.19) o como porcentaje (19).
func taxRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(decimal.NewFromInt(100))
	}
	return rate
}

// persistSale ejecuta la transacción de la venta y devuelve los movimientos OUT creados.
func (s *Service) persistSale(ctx context.Context, branch *entity.Branch, sale *entity.Sale, lines []pricedLine) ([]*entity.StockMovement, error) {
	now := s.engine.Now()
	local := now.In(s.cfg.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)

	var movements []*entity.StockMovement
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		movements = movements[:0]

		// Cantidad pedida por producto (un producto puede repetirse en el carrito)
		requested := make(map[string]int)
		for _, l := range lines {
			requested[l.ProductID] += l.Quantity
		}
		keys := make([]entity.StockKey, 0, len(requested))
		for pid := range requested {
			keys = append(keys, entity.StockKey{ProductID: pid, BranchID: branch.ID})
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

		// Bloquear todos los pares antes de validar: la verificación y el descuento ocurren
		// bajo los mismos bloqueos
		var shortages []domain.StockShortage
		for _, k := range keys {
			rec, err := repos.Stock.GetForUpdate(ctx, k.ProductID, k.BranchID)
			if err != nil {
				return err
			}
			if want := requested[k.ProductID]; rec.Quantity < want {
				shortages = append(shortages, domain.StockShortage{
					ProductID: k.ProductID,
					BranchID:  k.BranchID,
					Available: rec.Quantity,
					Requested: want,
					Shortfall: want - rec.Quantity,
				})
			}
		}
		if len(shortages) > 0 {
			return &domain.InsufficientStockError{Shortages: shortages}
		}

		seq, err := repos.Sequences.Next(ctx, repository.SequenceInvoice, branch.ID, day)
		if err != nil {
			return err
		}
		sale.ID = uuid.New().String()
		sale.InvoiceNumber = fmt.Sprintf("INV-%s-%s-%03d", branch.Code, day.Format("20060102"), seq)
		sale.BusinessDay = day
		sale.CreatedAt = now
		sale.UpdatedAt = now

		for i := range sale.Items {
			item := &sale.Items[i]
			item.ID = uuid.New().String()
			item.SaleID = sale.ID
			_, mov, err := s.engine.ApplyInTx(ctx, repos, inventory.MovementInput{
				ProductID:     item.ProductID,
				BranchID:      branch.ID,
				Delta:         -item.Quantity,
				Type:          entity.MovementTypeOUT,
				ActorID:       sale.CashierID,
				Reason:        "venta " + sale.InvoiceNumber,
				ReferenceType: entity.ReferenceSale,
				ReferenceID:   sale.ID,
			})
			if err != nil {
				return err
			}
			item.MovementID = mov.ID
			movements = append(movements, mov)
		}
		return repos.Sales.Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// GetSale devuelve la venta o NotFoundError.
func (s *Service) GetSale(ctx context.Context, id string) (*entity.Sale, error) {
	sale, err := s.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, &domain.NotFoundError{Entity: "venta", ID: id}
	}
	return sale, nil
}

// ListSales lista las ventas de una sucursal; day nil devuelve todos los días.
func (s *Service) ListSales(ctx context.Context, branchID string, day *time.Time, limit, offset int) ([]*entity.Sale, error) {
	if branchID == "" {
		return nil, fmt.Errorf("%w: sucursal obligatoria", domain.ErrInvalidInput)
	}
	if day != nil {
		local := day.In(s.cfg.Location)
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
		day = &d
	}
	return s.sales.ListByBranch(ctx, branchID, day, limit, offset)
}

// ParseDay interpreta YYYY-MM-DD como día calendario del negocio. Vacío devuelve nil.
func (s *Service) ParseDay(day string) (*time.Time, error) {
	if day == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", day, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: día %q (se espera YYYY-MM-DD)", domain.ErrInvalidInput, day)
	}
	return &d, nil
}

// CancelSale anula una venta COMPLETED.
func (s *Service) CancelSale(ctx context.Context, id, actorID, reason string) (*entity.Sale, error) {
	return s.void(ctx, id, actorID, reason, entity.SaleStatusCancelled)
}

// RefundSale marca como reembolsada una venta COMPLETED.
func (s *Service) RefundSale(ctx context.Context, id, actorID, reason string) (*entity.Sale, error) {
	return s.void(ctx, id, actorID, reason, entity.SaleStatusRefunded)
}

func (s *Service) void(ctx context.Context, id, actorID, reason, status string) (*entity.Sale, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: el motivo es obligatorio", domain.ErrInvalidInput)
	}
	action, tag, restockReason := "cancelar", "[ANULADA]", "reintegro por anulación de venta "
	if status == entity.SaleStatusRefunded {
		action, tag, restockReason = "reembolsar", "[REEMBOLSADA]", "reintegro por reembolso de venta "
	}

	var (
		sale      *entity.Sale
		movements []*entity.StockMovement
	)
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		movements = nil
		var err error
		sale, err = repos.Sales.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale == nil {
			return &domain.NotFoundError{Entity: "venta", ID: id}
		}
		if sale.Status != entity.SaleStatusCompleted {
			return &domain.InvalidStateTransitionError{Entity: "venta", From: sale.Status, Action: action}
		}

		if s.cfg.RestockOnVoid {
			items := append([]entity.SaleItem(nil), sale.Items...)
			sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
			for _, item := range items {
				_, mov, err := s.engine.ApplyInTx(ctx, repos, inventory.MovementInput{
					ProductID:     item.ProductID,
					BranchID:      sale.BranchID,
					Delta:         item.Quantity,
					Type:          entity.MovementTypeIN,
					ActorID:       actorID,
					Reason:        restockReason + sale.InvoiceNumber,
					ReferenceType: entity.ReferenceSale,
					ReferenceID:   sale.ID,
				})
				if err != nil {
					return err
				}
				movements = append(movements, mov)
			}
		}

		notes := strings.TrimSpace(sale.Notes + "\n" + tag + " " + reason)
		now := s.engine.Now()
		if err := repos.Sales.UpdateStatus(ctx, sale.ID, status, notes, now); err != nil {
			return err
		}
		sale.Status, sale.Notes, sale.UpdatedAt = status, notes, now
		return nil
	})
	if err != nil {
		s.engine.Reject(ctx, "void_sale", err)
		return nil, err
	}
	s.engine.Publish(ctx, movements...)
	s.log.Info().
		Str("sale_id", sale.ID).
		Str("invoice_number", sale.InvoiceNumber).
		Str("status", status).
		Bool("restocked", s.cfg.RestockOnVoid).
		Msg("venta anulada")
	return sale, nil
}

// Receipt genera el PDF del comprobante; devuelve los bytes y el nombre de archivo sugerido.
func (s *Service) Receipt(ctx context.Context, id string) ([]byte, string, error) {
	if s.receipts == nil {
		return nil, "", errors.New("generador de comprobantes no configurado")
	}
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, "", err
	}
	branch, err := s.engine.Branch(ctx, sale.BranchID)
	if err != nil {
		return nil, "", err
	}
	products := make(map[string]*entity.Product, len(sale.Items))
	for _, item := range sale.Items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		p, err := s.engine.Product(ctx, item.ProductID)
		if err != nil {
			return nil, "", err
		}
		products[item.ProductID] = p
	}
	pdf, err := s.receipts.SaleReceipt(sale, branch, products)
	if err != nil {
		return nil, "", fmt.Errorf("render receipt: %w", err)
	}
	return pdf, sale.InvoiceNumber + ".pdf", nil
}
