package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/purchasing"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/sales"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/memory"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/metrics"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/POS-Sucursales-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/POS-Sucursales-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor de prueba sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

const (
	prodArroz  = "p-arroz"
	prodAceite = "p-aceite"
	branchNor  = "b-norte"
)

type testServer struct {
	app    *fiber.App
	engine *inventory.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	store.AddBranch(entity.Branch{ID: testBranchID, Code: "CEN", Name: "Centro", IsActive: true})
	store.AddBranch(entity.Branch{ID: branchNor, Code: "NOR", Name: "Norte", IsActive: true})
	store.AddProduct(entity.Product{ID: prodArroz, SKU: "ARR-1", Name: "Arroz", Price: decimal.NewFromInt(1000), TaxRate: decimal.RequireFromString("0.19"), MinStock: 5, IsActive: true})
	store.AddProduct(entity.Product{ID: prodAceite, SKU: "ACE-1", Name: "Aceite", Price: decimal.NewFromInt(5000), MinStock: 2, IsActive: true})

	reg := prometheus.NewRegistry()
	m := metrics.NewInventoryMetrics(reg)
	log := zerolog.Nop()
	txRunner := store.TxRunner()
	repos := store.Repos()

	engine := inventory.NewEngine(txRunner, store.Products(), store.Branches(), log, m)
	query := inventory.NewStockQuery(repos.Stock, repos.Movements, store.Products(), nil)
	salesSvc := sales.NewService(txRunner, engine, repos.Sales, pdf.NewReceiptGenerator(), sales.Config{Location: time.UTC}, log)
	poSvc := purchasing.NewService(txRunner, engine, repos.Orders, time.UTC, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Engine:           engine,
		StockQuery:       query,
		Sales:            salesSvc,
		Purchasing:       poSvc,
		JWTSecret:        testJWTSecret,
		OperationTimeout: 5 * time.Second,
		Metrics:          reg,
	})
	return &testServer{app: app, engine: engine}
}

func (s *testServer) seed(t *testing.T, productID, branchID string, qty int) {
	t.Helper()
	_, err := s.engine.ApplyMovement(context.Background(), inventory.MovementInput{
		ProductID: productID, BranchID: branchID, Delta: qty,
		Type: entity.MovementTypeIN, ActorID: "seed", Reason: "carga inicial",
	})
	require.NoError(t, err)
}

func (s *testServer) call(t *testing.T, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryHandler_AjusteYConsulta(t *testing.T) {
	srv := newTestServer(t)
	manager := tokenFor(t, pkgjwt.RoleManager, testBranchID)

	resp, body := srv.call(t, http.MethodPost, "/api/inventory/adjustments", manager, dto.AdjustRequest{
		ProductID: prodArroz, BranchID: testBranchID, Direction: "INCREASE", Quantity: 12, Reason: "conteo inicial",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var adj dto.AdjustResponse
	require.NoError(t, json.Unmarshal(body, &adj))
	assert.Equal(t, 12, adj.Stock.Quantity)
	assert.Equal(t, entity.MovementTypeADJUSTMENT, adj.Movement.Type)
	assert.Equal(t, 0, adj.Movement.PreviousQuantity)

	resp, body = srv.call(t, http.MethodGet, "/api/inventory/stock/"+prodArroz+"/"+testBranchID, manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec dto.StockRecordResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, 12, rec.Quantity)
	assert.False(t, rec.IsLowStock)
}

func TestInventoryHandler_CajeroNoPuedeAjustar(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := srv.call(t, http.MethodPost, "/api/inventory/adjustments", tokenFor(t, pkgjwt.RoleCashier, testBranchID), dto.AdjustRequest{
		ProductID: prodArroz, BranchID: testBranchID, Direction: "INCREASE", Quantity: 1, Reason: "x",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryHandler_ValidacionDeBody(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.call(t, http.MethodPost, "/api/inventory/adjustments", tokenFor(t, pkgjwt.RoleAdmin, ""), dto.AdjustRequest{
		ProductID: prodArroz, BranchID: testBranchID, Direction: "SUBIR", Quantity: 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION")
	assert.Contains(t, string(body), "direction")
}

func TestInventoryHandler_TrasladoEntreSucursales(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 10)
	admin := tokenFor(t, pkgjwt.RoleAdmin, "")

	resp, body := srv.call(t, http.MethodPost, "/api/inventory/transfers", admin, dto.TransferRequest{
		ProductID: prodArroz, FromBranchID: testBranchID, ToBranchID: branchNor, Quantity: 4,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var tr dto.TransferResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	require.NotNil(t, tr.From)
	require.NotNil(t, tr.To)
	assert.Equal(t, 6, tr.From.Quantity)
	assert.Equal(t, 4, tr.To.Quantity)
	assert.Len(t, tr.Movements, 2)
	assert.False(t, tr.Compensated)
}

func TestInventoryHandler_TrasladoMismaSucursal409(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 10)

	resp, body := srv.call(t, http.MethodPost, "/api/inventory/transfers", tokenFor(t, pkgjwt.RoleAdmin, ""), dto.TransferRequest{
		ProductID: prodArroz, FromBranchID: testBranchID, ToBranchID: testBranchID, Quantity: 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_STATE_TRANSITION")
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventas
// ──────────────────────────────────────────────────────────────────────────────

func TestSalesHandler_VentaEnEfectivo(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 10)
	cashier := tokenFor(t, pkgjwt.RoleCashier, testBranchID)

	paid := decimal.NewFromInt(5000)
	resp, body := srv.call(t, http.MethodPost, "/api/sales", cashier, dto.CreateSaleRequest{
		PaymentMethod: entity.PaymentCash,
		AmountPaid:    &paid,
		Items:         []dto.SaleItemRequest{{ProductID: prodArroz, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var sale dto.SaleResponse
	require.NoError(t, json.Unmarshal(body, &sale))
	assert.Equal(t, testBranchID, sale.BranchID)
	assert.True(t, decimal.NewFromInt(2380).Equal(sale.Total), sale.Total.String())
	assert.True(t, decimal.NewFromInt(2620).Equal(sale.Change), sale.Change.String())
	assert.Regexp(t, `^INV-CEN-\d{8}-001$`, sale.InvoiceNumber)
	require.Len(t, sale.Items, 1)
	assert.NotEmpty(t, sale.Items[0].MovementID)

	resp, body = srv.call(t, http.MethodGet, "/api/sales/"+sale.ID+"/receipt", cashier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestSalesHandler_FaltantesReportadosJuntos(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 1)

	resp, body := srv.call(t, http.MethodPost, "/api/sales", tokenFor(t, pkgjwt.RoleCashier, testBranchID), dto.CreateSaleRequest{
		PaymentMethod: entity.PaymentCard,
		Items: []dto.SaleItemRequest{
			{ProductID: prodArroz, Quantity: 3},
			{ProductID: prodAceite, Quantity: 1},
		},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp struct {
		Code    string           `json:"code"`
		Details []map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	assert.Len(t, errResp.Details, 2)
}

func TestSalesHandler_CajeroDeOtraSucursal403(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, branchNor, 5)

	resp, _ := srv.call(t, http.MethodPost, "/api/sales", tokenFor(t, pkgjwt.RoleCashier, testBranchID), dto.CreateSaleRequest{
		BranchID:      branchNor,
		PaymentMethod: entity.PaymentCard,
		Items:         []dto.SaleItemRequest{{ProductID: prodArroz, Quantity: 1}},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSalesHandler_SinItems400(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.call(t, http.MethodPost, "/api/sales", tokenFor(t, pkgjwt.RoleCashier, testBranchID), dto.CreateSaleRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "items")
}

func TestSalesHandler_AnularDosVeces409(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 5)
	manager := tokenFor(t, pkgjwt.RoleManager, testBranchID)

	resp, body := srv.call(t, http.MethodPost, "/api/sales", manager, dto.CreateSaleRequest{
		PaymentMethod: entity.PaymentCard,
		Items:         []dto.SaleItemRequest{{ProductID: prodArroz, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sale dto.SaleResponse
	require.NoError(t, json.Unmarshal(body, &sale))

	resp, _ = srv.call(t, http.MethodPost, "/api/sales/"+sale.ID+"/cancel", manager, dto.VoidSaleRequest{Reason: "error de digitación"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.call(t, http.MethodPost, "/api/sales/"+sale.ID+"/refund", manager, dto.VoidSaleRequest{Reason: "otra vez"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_STATE_TRANSITION")
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes de compra
// ──────────────────────────────────────────────────────────────────────────────

func TestPurchaseOrderHandler_CicloYExcesoRechazado(t *testing.T) {
	srv := newTestServer(t)
	admin := tokenFor(t, pkgjwt.RoleAdmin, "")

	resp, body := srv.call(t, http.MethodPost, "/api/purchase-orders", admin, dto.CreatePurchaseOrderRequest{
		SupplierID: "prov-1",
		BranchID:   testBranchID,
		Items:      []dto.PurchaseOrderItemRequest{{ProductID: prodArroz, OrderedQty: 10, UnitCost: decimal.NewFromInt(700)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var po dto.PurchaseOrderResponse
	require.NoError(t, json.Unmarshal(body, &po))
	assert.Equal(t, entity.POStatusDraft, po.Status)
	itemID := po.Items[0].ID

	resp, _ = srv.call(t, http.MethodPost, "/api/purchase-orders/"+po.ID+"/submit", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// un manager no puede aprobar
	resp, _ = srv.call(t, http.MethodPost, "/api/purchase-orders/"+po.ID+"/approve", tokenFor(t, pkgjwt.RoleManager, testBranchID), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = srv.call(t, http.MethodPost, "/api/purchase-orders/"+po.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.call(t, http.MethodPost, "/api/purchase-orders/"+po.ID+"/receive", admin, dto.ReceivePurchaseOrderRequest{
		Items: []dto.ReceiveLineRequest{{ItemID: itemID, Quantity: 11}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "EXCEEDED_ORDERED_QUANTITY")

	resp, body = srv.call(t, http.MethodPost, "/api/purchase-orders/"+po.ID+"/receive", admin, dto.ReceivePurchaseOrderRequest{
		Items: []dto.ReceiveLineRequest{{ItemID: itemID, Quantity: 4}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &po))
	assert.Equal(t, entity.POStatusPartiallyReceived, po.Status)
	assert.Equal(t, 6, po.Items[0].PendingQty)

	resp, body = srv.call(t, http.MethodGet, "/api/inventory/stock/"+prodArroz+"/"+testBranchID, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec dto.StockRecordResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, 4, rec.Quantity)
}

func TestPurchaseOrderHandler_NoEncontrada404(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.call(t, http.MethodGet, "/api/purchase-orders/no-existe", tokenFor(t, pkgjwt.RoleAdmin, ""), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

// ──────────────────────────────────────────────────────────────────────────────
// Métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_MetricasExpuestas(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 3)

	resp, body := srv.call(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pos_stock_movements_total{type="IN"} 1`)
}

// ──────────────────────────────────────────────────────────────────────────────
// Alcance por sucursal
// ──────────────────────────────────────────────────────────────────────────────

func (s *testServer) saleAt(t *testing.T, branchID string) dto.SaleResponse {
	t.Helper()
	s.seed(t, prodArroz, branchID, 5)
	resp, body := s.call(t, http.MethodPost, "/api/sales", tokenFor(t, pkgjwt.RoleCashier, branchID), dto.CreateSaleRequest{
		PaymentMethod: entity.PaymentCard,
		Items:         []dto.SaleItemRequest{{ProductID: prodArroz, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sale dto.SaleResponse
	require.NoError(t, json.Unmarshal(body, &sale))
	return sale
}

func (s *testServer) orderAt(t *testing.T, branchID string) dto.PurchaseOrderResponse {
	t.Helper()
	resp, body := s.call(t, http.MethodPost, "/api/purchase-orders", tokenFor(t, pkgjwt.RoleAdmin, ""), dto.CreatePurchaseOrderRequest{
		SupplierID: "prov-1",
		BranchID:   branchID,
		Items:      []dto.PurchaseOrderItemRequest{{ProductID: prodArroz, OrderedQty: 5, UnitCost: decimal.NewFromInt(700)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var po dto.PurchaseOrderResponse
	require.NoError(t, json.Unmarshal(body, &po))
	return po
}

func TestSalesHandler_VentaDeOtraSucursalNoSeExpone(t *testing.T) {
	srv := newTestServer(t)
	sale := srv.saleAt(t, branchNor)
	cashierCen := tokenFor(t, pkgjwt.RoleCashier, testBranchID)
	managerCen := tokenFor(t, pkgjwt.RoleManager, testBranchID)
	void := dto.VoidSaleRequest{Reason: "prueba"}

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		body   any
	}{
		{"detalle", http.MethodGet, "/api/sales/" + sale.ID, cashierCen, nil},
		{"comprobante", http.MethodGet, "/api/sales/" + sale.ID + "/receipt", cashierCen, nil},
		{"anular", http.MethodPost, "/api/sales/" + sale.ID + "/cancel", managerCen, void},
		{"reembolsar", http.MethodPost, "/api/sales/" + sale.ID + "/refund", managerCen, void},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := srv.call(t, tc.method, tc.path, tc.auth, tc.body)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}

	// la venta sigue intacta y su sucursal sí puede operarla
	resp, _ := srv.call(t, http.MethodGet, "/api/sales/"+sale.ID+"/receipt", tokenFor(t, pkgjwt.RoleCashier, branchNor), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := srv.call(t, http.MethodPost, "/api/sales/"+sale.ID+"/cancel", tokenFor(t, pkgjwt.RoleManager, branchNor), void)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var voided dto.SaleResponse
	require.NoError(t, json.Unmarshal(body, &voided))
	assert.Equal(t, entity.SaleStatusCancelled, voided.Status)
}

func TestSalesHandler_AdminOperaCualquierSucursal(t *testing.T) {
	srv := newTestServer(t)
	sale := srv.saleAt(t, branchNor)
	admin := tokenFor(t, pkgjwt.RoleAdmin, testBranchID)

	resp, _ := srv.call(t, http.MethodGet, "/api/sales/"+sale.ID+"/receipt", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = srv.call(t, http.MethodPost, "/api/sales/"+sale.ID+"/refund", admin, dto.VoidSaleRequest{Reason: "devolución"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPurchaseOrderHandler_OrdenDeOtraSucursalNoSeExpone(t *testing.T) {
	srv := newTestServer(t)
	po := srv.orderAt(t, branchNor)
	managerCen := tokenFor(t, pkgjwt.RoleManager, testBranchID)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"detalle", http.MethodGet, "/api/purchase-orders/" + po.ID, nil},
		{"editar", http.MethodPut, "/api/purchase-orders/" + po.ID, dto.UpdatePurchaseOrderRequest{
			SupplierID: "prov-2",
			Items:      []dto.PurchaseOrderItemRequest{{ProductID: prodArroz, OrderedQty: 1, UnitCost: decimal.NewFromInt(1)}},
		}},
		{"enviar", http.MethodPost, "/api/purchase-orders/" + po.ID + "/submit", nil},
		{"recibir", http.MethodPost, "/api/purchase-orders/" + po.ID + "/receive", dto.ReceivePurchaseOrderRequest{
			Items: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 1}},
		}},
		{"cancelar", http.MethodPost, "/api/purchase-orders/" + po.ID + "/cancel", dto.CancelPurchaseOrderRequest{Reason: "x"}},
		{"eliminar", http.MethodDelete, "/api/purchase-orders/" + po.ID, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := srv.call(t, tc.method, tc.path, managerCen, tc.body)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}

	resp, body := srv.call(t, http.MethodGet, "/api/purchase-orders/"+po.ID, tokenFor(t, pkgjwt.RoleManager, branchNor), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var got dto.PurchaseOrderResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, entity.POStatusDraft, got.Status, "ninguna operación ajena debe haber cambiado la orden")
}

func TestPurchaseOrderHandler_ListadoLimitadoASuSucursal(t *testing.T) {
	srv := newTestServer(t)
	srv.orderAt(t, branchNor)
	own := srv.orderAt(t, testBranchID)
	managerCen := tokenFor(t, pkgjwt.RoleManager, testBranchID)

	resp, body := srv.call(t, http.MethodGet, "/api/purchase-orders", managerCen, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list dto.PurchaseOrderListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, own.ID, list.Items[0].ID)

	resp, _ = srv.call(t, http.MethodGet, "/api/purchase-orders?branch_id="+branchNor, managerCen, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = srv.call(t, http.MethodGet, "/api/purchase-orders", tokenFor(t, pkgjwt.RoleAdmin, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 2)
}

func TestInventoryHandler_LibroLimitadoASuSucursal(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, prodArroz, testBranchID, 3)
	srv.seed(t, prodArroz, branchNor, 4)
	managerCen := tokenFor(t, pkgjwt.RoleManager, testBranchID)

	resp, body := srv.call(t, http.MethodGet, "/api/inventory/movements", managerCen, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list dto.MovementListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, testBranchID, list.Items[0].BranchID)

	for _, path := range []string{
		"/api/inventory/movements?branch_id=" + branchNor,
		"/api/inventory/branches/" + branchNor + "/replenishment",
		"/api/inventory/stock/" + prodArroz + "/" + branchNor + "/verify",
	} {
		resp, _ = srv.call(t, http.MethodGet, path, managerCen, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	// la disponibilidad de otra sucursal sí es visible
	resp, _ = srv.call(t, http.MethodGet, "/api/inventory/stock/"+prodArroz+"/"+branchNor, tokenFor(t, pkgjwt.RoleCashier, testBranchID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
