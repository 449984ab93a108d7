package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devadigapratham/printsync/api"
	"github.com/devadigapratham/printsync/api/handlers"
	"github.com/devadigapratham/printsync/api/models"
	"github.com/devadigapratham/printsync/raft"
	"github.com/devadigapratham/printsync/stock"
	"github.com/devadigapratham/printsync/watchdog"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWatchdog struct {
	running bool
	stopErr error
}

func (f *fakeWatchdog) Start() watchdog.Result {
	if f.running {
		return watchdog.AlreadyRunning
	}
	f.running = true
	return watchdog.Started
}

func (f *fakeWatchdog) Stop(ctx context.Context) (watchdog.Result, error) {
	if !f.running {
		return watchdog.NotRunning, nil
	}
	f.running = false
	return watchdog.Stopped, f.stopErr
}

func (f *fakeWatchdog) Status() watchdog.Status {
	return watchdog.Status{Running: f.running}
}

type testServer struct {
	router *gin.Engine
	store  *raft.Store
	wd     *fakeWatchdog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := raft.NewInmemNode("api-test")
	require.NoError(t, err)
	t.Cleanup(func() { node.Shutdown() })

	log, _ := test.NewNullLogger()
	store := raft.NewStore(node)
	engine := stock.NewEngine(store, stock.DefaultLowStockThreshold, log)
	wd := &fakeWatchdog{}
	handler := handlers.NewHandler(node, store, engine, wd, log)

	return &testServer{
		router: api.SetupRouter(handler, raft.NewTransport(node)),
		store:  store,
		wd:     wd,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func (s *testServer) seedMaterials(t *testing.T) (paperID, inkID string) {
	t.Helper()
	ctx := context.Background()
	paper := &models.RawMaterial{Name: "A4 Paper", Type: models.MaterialPaper, CurrentLevel: 500}
	ink := &models.RawMaterial{Name: "Black Ink", Type: models.MaterialInk, CurrentLevel: 100}
	require.NoError(t, s.store.AddMaterial(ctx, paper))
	require.NoError(t, s.store.AddMaterial(ctx, ink))
	return paper.ID, ink.ID
}

func TestWatchdogEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/admin/watchdog/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["running"])

	_, body = s.do(t, http.MethodPost, "/api/v1/admin/watchdog/start", nil)
	assert.Equal(t, string(watchdog.Started), body["status"])
	_, body = s.do(t, http.MethodPost, "/api/v1/admin/watchdog/start", nil)
	assert.Equal(t, string(watchdog.AlreadyRunning), body["status"])

	_, body = s.do(t, http.MethodGet, "/api/v1/admin/watchdog/status", nil)
	assert.Equal(t, true, body["running"])

	_, body = s.do(t, http.MethodPost, "/api/v1/admin/watchdog/stop", nil)
	assert.Equal(t, string(watchdog.Stopped), body["status"])
	assert.Equal(t, true, body["exited"])
	_, body = s.do(t, http.MethodPost, "/api/v1/admin/watchdog/stop", nil)
	assert.Equal(t, string(watchdog.NotRunning), body["status"])
}

func TestWatchdogStopReportsTimeout(t *testing.T) {
	s := newTestServer(t)
	s.wd.running = true
	s.wd.stopErr = watchdog.ErrStopTimeout

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/watchdog/stop", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(watchdog.Stopped), body["status"])
	assert.Equal(t, false, body["exited"])
}

func TestRegisterPrinter(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/printers", map[string]string{
		"name": "Front Desk", "ip_address": "192.168.1.40",
	})
	require.Equal(t, http.StatusCreated, code)
	printer := body["printer"].(map[string]interface{})

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/printers/"+printer["id"].(string)+"/logs", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/printers/nope/logs", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/printers", map[string]string{"name": "No IP"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestExecutePrintJobConsumesStock(t *testing.T) {
	s := newTestServer(t)
	paperID, inkID := s.seedMaterials(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/print_jobs", map[string]interface{}{
		"filename": "notes.pdf", "total_pages": 10,
	})
	require.Equal(t, http.StatusCreated, code)
	jobCode := body["job_code"].(string)
	assert.Len(t, jobCode, 4)

	code, body = s.do(t, http.MethodPost, "/api/v1/staff/print/"+jobCode, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(10), body["pages_deducted"])
	assert.ElementsMatch(t, []interface{}{"Deducted 10 of A4 Paper", "Deducted 0.5 of Black Ink"}, body["deductions"])

	paper, _ := s.store.FSM().GetMaterial(paperID)
	ink, _ := s.store.FSM().GetMaterial(inkID)
	assert.Equal(t, 490.0, paper.CurrentLevel)
	assert.InDelta(t, 99.5, ink.CurrentLevel, 1e-9)

	job, _ := s.store.FSM().GetPrintJobByCode(jobCode)
	assert.Equal(t, models.JobPrinted, job.Status)

	code, _ = s.do(t, http.MethodPost, "/api/v1/staff/print/0000", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestExecutePrintJobUsesRecipes(t *testing.T) {
	s := newTestServer(t)
	paperID, _ := s.seedMaterials(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/admin/recipes", map[string]interface{}{
		"service_type": stock.ServicePrintBW, "raw_material_id": paperID, "quantity_required": 2,
	})
	require.Equal(t, http.StatusCreated, code)

	_, body := s.do(t, http.MethodPost, "/api/v1/print_jobs", map[string]interface{}{
		"filename": "booklet.pdf", "total_pages": 4,
	})
	_, body = s.do(t, http.MethodPost, "/api/v1/staff/print/"+body["job_code"].(string), nil)
	assert.Equal(t, []interface{}{"Deducted 8 of A4 Paper"}, body["deductions"])

	paper, _ := s.store.FSM().GetMaterial(paperID)
	assert.Equal(t, 492.0, paper.CurrentLevel)
}

func TestCheckout(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.seedMaterials(t)

	require.NoError(t, s.store.AddProduct(ctx, &models.Product{Name: "Pen", Barcode: "5901234", Price: 1.25, StockQuantity: 3}))
	require.NoError(t, s.store.SetSetting(ctx, &models.Setting{Key: handlers.SettingPriceColor, Value: "1.00"}))
	job := &models.PrintJob{JobCode: "2468", Filename: "poster.pdf", TotalPages: 2, IsColor: true}
	require.NoError(t, s.store.AddPrintJob(ctx, job))

	code, body := s.do(t, http.MethodPost, "/api/v1/pos/checkout", map[string]interface{}{
		"payment_method": "CASH",
		"items": []map[string]interface{}{
			{"type": models.CartProduct, "id": "5901234", "quantity": 2},
			{"type": models.CartPrintJob, "id": "2468"},
		},
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])
	assert.InDelta(t, 4.5, body["total_paid"].(float64), 1e-9)
	assert.NotEmpty(t, body["deductions"])

	product, _ := s.store.FSM().GetProductByBarcode("5901234")
	assert.Equal(t, 1, product.StockQuantity)
	collected, _ := s.store.FSM().GetPrintJobByCode("2468")
	assert.Equal(t, models.JobCollected, collected.Status)

	orders := s.store.FSM().GetOrders()
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 2)
}

func TestCheckoutRejectsShortStock(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.store.AddProduct(ctx, &models.Product{Name: "Stapler", Barcode: "777", Price: 4, StockQuantity: 1}))

	code, body := s.do(t, http.MethodPost, "/api/v1/pos/checkout", map[string]interface{}{
		"items": []map[string]interface{}{
			{"type": models.CartProduct, "id": "777"},
			{"type": models.CartProduct, "id": "777"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Not enough stock for Stapler", body["error"])

	product, _ := s.store.FSM().GetProductByBarcode("777")
	assert.Equal(t, 1, product.StockQuantity)
	assert.Empty(t, s.store.FSM().GetOrders())

	code, _ = s.do(t, http.MethodPost, "/api/v1/pos/checkout", map[string]interface{}{
		"items": []map[string]interface{}{{"type": "GIFT_CARD", "id": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/pos/checkout", map[string]interface{}{
		"items": []map[string]interface{}{{"type": models.CartProduct, "id": "missing"}},
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInventoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/inventory/products", map[string]interface{}{
		"name": "Notebook", "barcode": "100", "price": 2.5, "stock_quantity": 4,
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/inventory/products", map[string]interface{}{
		"name": "Duplicate", "barcode": "100",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := s.do(t, http.MethodGet, "/api/v1/inventory/scan/100", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "found", body["status"])
	assert.Equal(t, float64(4), body["stock"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/inventory/audit/100?actual_qty=12", nil)
	require.Equal(t, http.StatusOK, code)
	_, body = s.do(t, http.MethodGet, "/api/v1/inventory/scan/100", nil)
	assert.Equal(t, float64(12), body["stock"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/inventory/audit/100?actual_qty=-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/inventory/scan/999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLowMaterials(t *testing.T) {
	s := newTestServer(t)
	paperID, _ := s.seedMaterials(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/inventory/materials/"+paperID+"/level", map[string]interface{}{"level": 20})
	require.Equal(t, http.StatusOK, code)

	_, body := s.do(t, http.MethodGet, "/api/v1/inventory/materials/low", nil)
	low := body["materials"].([]interface{})
	require.Len(t, low, 1)
	assert.Equal(t, paperID, low[0].(map[string]interface{})["id"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/inventory/materials", map[string]interface{}{"name": "Toner", "type": "TONER"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDashboardStats(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.store.AddProduct(ctx, &models.Product{Name: "Pen", Barcode: "1", Price: 0.3, StockQuantity: 20}))
	require.NoError(t, s.store.AddProduct(ctx, &models.Product{Name: "Glue", Barcode: "2", Price: 1, StockQuantity: 2}))

	for i := 0; i < 3; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/pos/checkout", map[string]interface{}{
			"items": []map[string]interface{}{{"type": models.CartProduct, "id": "1"}},
		})
		require.Equal(t, http.StatusOK, code)
	}

	_, body := s.do(t, http.MethodGet, "/api/v1/dashboard/stats", nil)
	assert.Equal(t, 0.9, body["total_sales"])
	assert.Equal(t, float64(3), body["total_orders"])
	assert.Equal(t, float64(2), body["total_products"])
	assert.Equal(t, float64(1), body["low_stock_items"])

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/recent-orders?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Len(t, orders, 2)
}

func TestStatusAndHealth(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "api-test", body["node_id"])
	assert.Equal(t, true, body["is_leader"])

	code, body = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
