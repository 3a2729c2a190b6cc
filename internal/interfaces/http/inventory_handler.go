package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

// InventoryHandler ajustes, traslados y consultas de stock (protegido).
type InventoryHandler struct {
	engine *inventory.Engine
	query  *inventory.StockQuery
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.Engine, query *inventory.StockQuery) *InventoryHandler {
	return &InventoryHandler{engine: engine, query: query}
}

// Adjust ajuste manual de stock (aumento, disminución o conteo físico).
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	branchID, err := scopeBranch(c, in.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	rec, mov, err := h.engine.Adjust(c.UserContext(), inventory.AdjustInput{
		ProductID: in.ProductID,
		BranchID:  branchID,
		Direction: in.Direction,
		Quantity:  in.Quantity,
		ActorID:   GetUserID(c),
		Reason:    in.Reason,
		Notes:     in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustResponse{
		Stock:    dto.NewStockRecordResponse(rec),
		Movement: dto.NewMovementResponse(mov),
	})
}

// Transfer traslado entre sucursales.
// Si el destino falla, el origen se compensa y se responde 409 TRANSFER_COMPENSATED con el detalle.
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := bindBody(c, &in); err != nil {
		return done(err)
	}
	if _, err := scopeBranch(c, in.FromBranchID); err != nil {
		return writeError(c, err)
	}
	res, err := h.engine.Transfer(c.UserContext(), inventory.TransferInput{
		ProductID:    in.ProductID,
		FromBranchID: in.FromBranchID,
		ToBranchID:   in.ToBranchID,
		Quantity:     in.Quantity,
		ActorID:      GetUserID(c),
		Notes:        in.Notes,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTransferCompensated) && res != nil {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "TRANSFER_COMPENSATED",
				Message: err.Error(),
				Details: newTransferResponse(res),
			})
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newTransferResponse(res))
}

func newTransferResponse(res *inventory.TransferResult) dto.TransferResponse {
	out := dto.TransferResponse{
		TransferID:  res.TransferID,
		Movements:   dto.NewMovementResponses(res.Movements),
		Compensated: res.Compensated,
	}
	if res.From != nil {
		from := dto.NewStockRecordResponse(res.From)
		out.From = &from
	}
	if res.To != nil {
		to := dto.NewStockRecordResponse(res.To)
		out.To = &to
	}
	return out
}

// GetStock stock de un producto en una sucursal.
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	rec, err := h.query.GetStock(c.UserContext(), c.Params("productId"), c.Params("branchId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewStockRecordResponse(rec))
}

// BranchStock stock de una sucursal (low_only=true para solo bajo mínimo).
func (h *InventoryHandler) BranchStock(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return done(err)
	}
	page.DefaultPage()
	list, err := h.query.BranchStock(c.UserContext(), c.Params("branchId"), c.QueryBool("low_only", false), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.StockRecordResponse, 0, len(list))
	for _, rec := range list {
		items = append(items, dto.NewStockRecordResponse(rec))
	}
	return c.JSON(dto.StockListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// Replenishment sugerencias de reposición de una sucursal.
func (h *InventoryHandler) Replenishment(c *fiber.Ctx) error {
	branchID, err := scopeBranch(c, c.Params("branchId"))
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.query.ReplenishmentSuggestions(c.UserContext(), branchID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

// Movements libro de movimientos con filtros.
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	var q dto.MovementQuery
	if err := bindQuery(c, &q); err != nil {
		return done(err)
	}
	q.DefaultPage()
	branchID, err := scopeFilter(c, q.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	f := repository.MovementFilter{
		ProductID:     q.ProductID,
		BranchID:      branchID,
		Type:          q.Type,
		ReferenceType: q.ReferenceType,
		ReferenceID:   q.ReferenceID,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: from debe ser RFC3339", domain.ErrInvalidInput))
		}
		f.From = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: to debe ser RFC3339", domain.ErrInvalidInput))
		}
		f.To = &t
	}
	list, err := h.query.Movements(c.UserContext(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: dto.NewMovementResponses(list),
		Page:  dto.PageResponse{Limit: f.Limit, Offset: f.Offset},
	})
}

// VerifyPair verifica la consistencia del libro para un par producto+sucursal.
func (h *InventoryHandler) VerifyPair(c *fiber.Ctx) error {
	branchID, err := scopeBranch(c, c.Params("branchId"))
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.query.VerifyPair(c.UserContext(), c.Params("productId"), branchID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
