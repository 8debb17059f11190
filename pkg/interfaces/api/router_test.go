package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/application/services/costing"
	"github.com/vsinha/bomcheck/pkg/application/services/feasibility"
	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/infrastructure/cache"
	"github.com/vsinha/bomcheck/pkg/infrastructure/events"
	"github.com/vsinha/bomcheck/pkg/infrastructure/metrics"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/bomcheck/pkg/infrastructure/testing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	store   *memory.Store
	metrics *metrics.Metrics
	router  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithTreeBudget(t, 0)
}

func newTestServerWithTreeBudget(t *testing.T, maxTreeNodes int) *testServer {
	t.Helper()
	store := testhelpers.BuildWorkshopStore()
	m := metrics.New()
	resolver := bom.NewResolver(store, 0, nil).WithMaxTreeNodes(maxTreeNodes)
	analyzer := feasibility.NewAnalyzer(resolver, store, nil)

	router := NewRouter(Dependencies{
		Items:        store,
		Transactions: store,
		Resolver:     resolver,
		Analyzer:     analyzer,
		Calculator:   costing.NewCalculator(resolver, store, store, cache.NewMemoryCache(), time.Minute, nil),
		Processor:    production.NewProcessor(store, store, analyzer, events.NewMemoryLog(nil), m, nil),
		Metrics:      m,
	})
	return &testServer{store: store, metrics: m, router: router}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) scrape(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProductionBatch_Commits(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/inventory/production/batch", `{
		"transaction_date": "2024-06-01",
		"items": [
			{"item_id": 20, "quantity": 4, "unit_price": 10},
			{"product_item_id": 1, "quantity": 1, "unit_price": 250}
		],
		"reference_no": "PRD-7"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2 production transactions registered", body["message"])

	data := body["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["total_count"])
	assert.Equal(t, float64(5), summary["total_quantity"])
	assert.Equal(t, float64(290), summary["total_value"])
	assert.Len(t, data["transactions"], 2)
	assert.NotNil(t, data["bom_validations"])

	assert.Equal(t, "5", testhelpers.Stock(s.store, testhelpers.Steel).String())
	assert.Contains(t, s.scrape(t), `bomcheck_production_batches_total{outcome="committed"} 1`)
}

func TestProductionBatch_RejectsShortageAsWhole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/inventory/production/batch", `{
		"transaction_date": "2024-06-01",
		"items": [{"item_id": 30, "quantity": 1, "unit_price": 1}, {"item_id": 20, "quantity": 10, "unit_price": 1}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation failed", body["error"])
	assert.Equal(t, []interface{}{
		"insufficient stock for RM-STEEL (Steel Tube): required 50, available 30, short 20",
	}, body["details"])
	assert.Contains(t, body["data"], "bom_validations")

	assert.Equal(t, "7", testhelpers.Stock(s.store, testhelpers.Loose).String())
	txs, err := s.store.ListTransactions(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestProductionBatch_RequestErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantError   string
		wantDetails []interface{}
	}{
		{
			name:      "malformed json",
			body:      `{"transaction_date": `,
			wantError: msgInvalidJSON,
		},
		{
			name:        "malformed line",
			body:        `{"transaction_date": "2024-06-01", "items": [{"item_id": 20, "quantity": "lots"}]}`,
			wantError:   "validation failed",
			wantDetails: nil,
		},
		{
			name:      "missing fields",
			body:      `{"items": []}`,
			wantError: "validation failed",
			wantDetails: []interface{}{
				"transaction_date is required",
				"at least one item is required",
			},
		},
		{
			name:      "unknown and inactive items",
			body:      `{"transaction_date": "2024-06-01", "items": [{"item_id": 999, "quantity": 1}, {"item_id": 31, "quantity": 1}]}`,
			wantError: "validation failed",
			wantDetails: []interface{}{
				"item 1: item not found (item_id=999)",
				"item 2: inactive item (item_id=31)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/api/inventory/production/batch", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, body["details"])
			}
		})
	}
}

func TestProductionBatch_UseBOMFalseSkipsMaterials(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/inventory/production/batch", `{
		"transaction_date": "2024-06-01",
		"items": [{"item_id": 20, "quantity": 100, "unit_price": 0}],
		"use_bom": false,
		"created_by": 7
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "30", testhelpers.Stock(s.store, testhelpers.Steel).String())
	txs, err := s.store.ListTransactions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(7), txs[0].CreatedBy)
}

func TestBOMCheck_GetAndPost(t *testing.T) {
	s := newTestServer(t)

	for _, rec := range []*httptest.ResponseRecorder{
		s.do(t, http.MethodGet, "/api/inventory/production/bom-check?product_item_id=20&quantity=10", ""),
		s.do(t, http.MethodPost, "/api/inventory/production/bom-check", `{"product_item_id": 20, "quantity": 10}`),
	} {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, false, data["can_produce"])
		assert.Equal(t, float64(6), data["max_producible_quantity"])

		materials := data["bom_items"].([]interface{})
		require.Len(t, materials, 1)
		steel := materials[0].(map[string]interface{})
		assert.Equal(t, float64(50), steel["required_quantity"])
		assert.Equal(t, float64(20), steel["shortage"])
	}

	assert.Contains(t, s.scrape(t), `bomcheck_feasibility_checks_total{can_produce="false",kind="single"} 2`)
}

func TestBOMCheck_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"missing id", "/api/inventory/production/bom-check", http.StatusBadRequest},
		{"bad id", "/api/inventory/production/bom-check?product_item_id=abc", http.StatusBadRequest},
		{"zero quantity", "/api/inventory/production/bom-check?product_item_id=20&quantity=0", http.StatusBadRequest},
		{"unknown item", "/api/inventory/production/bom-check?product_item_id=999", http.StatusNotFound},
		{"inactive item", "/api/inventory/production/bom-check?product_item_id=31", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, false, decode(t, rec)["success"])
		})
	}
}

func TestBOMCheckBatch(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/inventory/production/bom-check/batch", `{
		"items": [{"item_id": 20, "quantity": 4}, {"product_item_id": 1, "quantity": 3}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, false, data["can_produce"])
	assert.Len(t, data["lines"], 2)

	rec = s.do(t, http.MethodPost, "/api/inventory/production/bom-check/batch", `{"items": [{"item_id": 20}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []interface{}{"item 1: quantity must be greater than 0"}, decode(t, rec)["details"])

	// a malformed line must not shift the numbering of the lines after it
	rec = s.do(t, http.MethodPost, "/api/inventory/production/bom-check/batch", `{
		"items": [{"item_id": 20, "quantity": 1}, {"item_id": "x"}, {"item_id": 20, "quantity": 0}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].([]interface{})
	require.Len(t, details, 2)
	assert.Contains(t, details[0], "item 2: malformed line")
	assert.Equal(t, "item 3: quantity must be greater than 0", details[1])
}

func TestCalculateFromBOM(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/price-master/calculate-from-bom", `{
		"item_id": 1, "effective_date": "2024-06-01", "include_labor": true, "include_overhead": true
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(49.4), data["total_material_cost"])
	assert.Equal(t, float64(56.81), data["calculated_price"])
	assert.Equal(t, "FG-BIKE", data["item_code"])
	assert.Contains(t, body["message"], "lower bound")

	rec = s.do(t, http.MethodPost, "/api/price-master/calculate-from-bom", `{"item_id": 999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/price-master/calculate-from-bom", `{"item_id": 1, "effective_date": "06/01/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCost(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/price-master/calculate-from-bom/1/export?effective_date=2024-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="BOM_Cost_FG-BIKE_`))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	code, err := f.GetCellValue("Cost", "B2")
	require.NoError(t, err)
	assert.Equal(t, "FG-BIKE", code)
}

func TestExplode(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/bom/explode/1?quantity=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["max_level"])
	assert.Len(t, data["explosion"], 8)

	requirements := data["requirements"].([]interface{})
	first := requirements[0].(map[string]interface{})
	assert.Equal(t, "RM-STEEL", first["item_code"])
	assert.Equal(t, float64(10), first["quantity"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/bom/explode/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/bom/explode/x", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/bom/explode/1?quantity=-1", "").Code)
}

func TestTreeBudgetExceeded(t *testing.T) {
	s := newTestServerWithTreeBudget(t, 5)

	rec := s.do(t, http.MethodGet, "/api/bom/explode/1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "BOM tree too large", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/price-master/calculate-from-bom", `{"item_id": 1, "effective_date": "2024-06-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	// feasibility only needs the requirement vector
	rec = s.do(t, http.MethodGet, "/api/inventory/production/bom-check?product_item_id=1&quantity=1", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestWhereUsed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/bom/where-used/14", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["direct_parents"])
	assert.Equal(t, float64(2), summary["max_level"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/bom/where-used/999", "").Code)
}

func TestListTransactions(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/inventory/production/batch",
		`{"transaction_date": "2024-06-01", "items": [{"item_id": 30, "quantity": 1}, {"item_id": 30, "quantity": 2}]}`)

	rec := s.do(t, http.MethodGet, "/api/inventory/production/transactions?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode(t, rec)["data"].([]interface{})
	require.Len(t, txs, 1)
	assert.Equal(t, float64(2), txs[0].(map[string]interface{})["quantity"])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/inventory/production/transactions?limit=0", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	down := NewRouter(Dependencies{Health: func(context.Context) error { return errors.New("connection refused") }})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
