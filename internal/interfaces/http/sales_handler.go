package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/sales"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// SalesHandler ventas de caja (protegido).
type SalesHandler struct {
	svc *sales.Service
}

// NewSalesHandler construye el handler.
func NewSalesHandler(svc *sales.Service) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// Create registrar venta.
// Descuenta el stock de todas las líneas en una transacción; si falta stock responde 409 con todos los faltantes.
func (h *SalesHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	branchID, err := scopeBranch(c, in.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	lines := make([]sales.SaleLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, sales.SaleLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	sale, err := h.svc.CreateSale(c.UserContext(), sales.CreateSaleInput{
		BranchID:      branchID,
		CashierID:     GetUserID(c),
		CustomerID:    in.CustomerID,
		PaymentMethod: in.PaymentMethod,
		AmountPaid:    in.AmountPaid,
		Discount:      in.Discount,
		Notes:         in.Notes,
		Items:         lines,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSaleResponse(sale))
}

// List ventas de una sucursal (opcionalmente de un día).
func (h *SalesHandler) List(c *fiber.Ctx) error {
	var q dto.SaleListQuery
	if err := bindQuery(c, &q); err != nil {
		return done(err)
	}
	q.DefaultPage()
	branchID, err := scopeBranch(c, q.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	day, err := h.svc.ParseDay(q.Day)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.ListSales(c.UserContext(), branchID, day, q.Limit, q.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SaleListResponse{
		Items: dto.NewSaleResponses(list),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	})
}

// GetByID obtener venta.
func (h *SalesHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.scopedSale(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// scopedSale carga la venta de la ruta y verifica que pertenezca a la sucursal del usuario.
func (h *SalesHandler) scopedSale(c *fiber.Ctx) (*entity.Sale, error) {
	sale, err := h.svc.GetSale(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if _, err := scopeBranch(c, sale.BranchID); err != nil {
		return nil, err
	}
	return sale, nil
}

// Cancel anular venta (solo COMPLETED).
func (h *SalesHandler) Cancel(c *fiber.Ctx) error {
	var in dto.VoidSaleRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	if _, err := h.scopedSale(c); err != nil {
		return writeError(c, err)
	}
	sale, err := h.svc.CancelSale(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// Refund reembolsar venta (solo COMPLETED).
func (h *SalesHandler) Refund(c *fiber.Ctx) error {
	var in dto.VoidSaleRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	if _, err := h.scopedSale(c); err != nil {
		return writeError(c, err)
	}
	sale, err := h.svc.RefundSale(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// Receipt comprobante PDF de la venta.
func (h *SalesHandler) Receipt(c *fiber.Ctx) error {
	if _, err := h.scopedSale(c); err != nil {
		return writeError(c, err)
	}
	pdf, filename, err := h.svc.Receipt(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}
