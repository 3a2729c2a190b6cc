package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/purchasing"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// PurchaseOrderHandler ciclo de vida de órdenes de compra (protegido).
type PurchaseOrderHandler struct {
	svc *purchasing.Service
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(svc *purchasing.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{svc: svc}
}

func toItemInputs(items []dto.PurchaseOrderItemRequest) []purchasing.ItemInput {
	out := make([]purchasing.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, purchasing.ItemInput{ProductID: it.ProductID, OrderedQty: it.OrderedQty, UnitCost: it.UnitCost})
	}
	return out
}

// scopedOrder carga la orden de la ruta y verifica que pertenezca a la sucursal del usuario.
func (h *PurchaseOrderHandler) scopedOrder(c *fiber.Ctx) (*entity.PurchaseOrder, error) {
	po, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if _, err := scopeBranch(c, po.BranchID); err != nil {
		return nil, err
	}
	return po, nil
}

// Create crear orden de compra (DRAFT).
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	branchID, err := scopeBranch(c, in.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	po, err := h.svc.Create(c.UserContext(), purchasing.CreateInput{
		SupplierID:   in.SupplierID,
		BranchID:     branchID,
		CreatedBy:    GetUserID(c),
		Notes:        in.Notes,
		ExpectedDate: in.ExpectedDate,
		TaxAmount:    in.TaxAmount,
		Discount:     in.Discount,
		Items:        toItemInputs(in.Items),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewPurchaseOrderResponse(po))
}

// List listar órdenes de compra.
func (h *PurchaseOrderHandler) List(c *fiber.Ctx) error {
	var q dto.PurchaseOrderListQuery
	if err := bindQuery(c, &q); err != nil {
		return done(err)
	}
	q.DefaultPage()
	branchID, err := scopeFilter(c, q.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.List(c.UserContext(), repository.PurchaseOrderFilter{
		BranchID:   branchID,
		SupplierID: q.SupplierID,
		Status:     q.Status,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.PurchaseOrderListResponse{
		Items: dto.NewPurchaseOrderResponses(list),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	})
}

// GetByID obtener orden de compra.
func (h *PurchaseOrderHandler) GetByID(c *fiber.Ctx) error {
	po, err := h.scopedOrder(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}

// Update editar orden en DRAFT (reemplaza los ítems).
func (h *PurchaseOrderHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdatePurchaseOrderRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	if _, err := h.scopedOrder(c); err != nil {
		return writeError(c, err)
	}
	po, err := h.svc.Update(c.UserContext(), c.Params("id"), purchasing.UpdateInput{
		SupplierID:   in.SupplierID,
		Notes:        in.Notes,
		ExpectedDate: in.ExpectedDate,
		TaxAmount:    in.TaxAmount,
		Discount:     in.Discount,
		Items:        toItemInputs(in.Items),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}

// Delete eliminar orden (DRAFT o CANCELLED).
func (h *PurchaseOrderHandler) Delete(c *fiber.Ctx) error {
	if _, err := h.scopedOrder(c); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Submit enviar a aprobación (DRAFT -> PENDING).
func (h *PurchaseOrderHandler) Submit(c *fiber.Ctx) error {
	if _, err := h.scopedOrder(c); err != nil {
		return writeError(c, err)
	}
	po, err := h.svc.Submit(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}

// Approve aprobar (PENDING -> APPROVED).
func (h *PurchaseOrderHandler) Approve(c *fiber.Ctx) error {
	if _, err := h.scopedOrder(c); err != nil {
		return writeError(c, err)
	}
	po, err := h.svc.Approve(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}

// Receive recibir mercancía (parcial o total).
// Si alguna línea supera lo ordenado se rechaza el lote completo con 409 y el detalle de cada línea.
func (h *PurchaseOrderHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceivePurchaseOrderRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	lines := make([]purchasing.ReceiveLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, purchasing.ReceiveLine{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	if _, err := h.scopedOrder(c); err != nil {
		return writeError(c, err)
	}
	po, err := h.svc.Receive(c.UserContext(), c.Params("id"), purchasing.ReceiveInput{
		ActorID:      GetUserID(c),
		ReceivedDate: in.ReceivedDate,
		Items:        lines,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}

// Cancel cancelar orden.
func (h *PurchaseOrderHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelPurchaseOrderRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	if _, err := h.scopedOrder(c); err != nil {
		return writeError(c, err)
	}
	po, err := h.svc.Cancel(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}
