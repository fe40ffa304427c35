package adminapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/eazybuy/config"
	"github.com/talkincode/eazybuy/internal/cart"
	"github.com/talkincode/eazybuy/internal/catalog"
	"github.com/talkincode/eazybuy/internal/checkout"
	"github.com/talkincode/eazybuy/internal/customers"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/payment"
	"github.com/talkincode/eazybuy/internal/pricing"
	"github.com/talkincode/eazybuy/internal/webserver"
	"github.com/talkincode/eazybuy/pkg/common"
)

type testEnv struct {
	h      *Handler
	e      *echo.Echo
	ledger *inventory.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := config.DefaultAppConfig

	products := catalog.NewMemoryProductRepository()
	require.NoError(t, products.Create(ctx, &domain.Product{
		ID: 101, Name: "Headphones", Category: "electronics", Price: 199.99, InStock: true,
	}))

	ledger := inventory.NewService(inventory.NewMemoryRepository(), products, EventBus.New())
	require.NoError(t, ledger.EnsureItem(ctx, 101, 10, 2))

	discounts := pricing.NewMemoryDiscountRepository()
	carts := cart.NewMemoryRepository()
	orderRepo := orders.NewMemoryRepository()
	checkoutSvc := checkout.NewService(
		carts, cart.NewReconciler(catalog.NewStockView(products, ledger)),
		pricing.NewEngine(discounts), discounts, ledger, orderRepo,
		&payment.DemoClient{Delay: time.Millisecond}, nil,
		checkout.Pricing{BaseShipping: 9.99, TaxRate: 0.08, Currency: "USD"},
	)

	operators := NewMemoryOperatorStore(&domain.SysOpr{
		ID: 1, Username: "admin", Level: "super", Status: common.ENABLED,
		Password: common.Sha256HashWithSalt("eazybuy", common.GetSecretSalt()),
	})

	h := NewHandler(cfg, products, ledger,
		pricing.NewMemoryAdminRepository(discounts),
		orderRepo, checkoutSvc,
		customers.NewMemoryRepository(), operators)

	return &testEnv{h: h, e: echo.New(), ledger: ledger}
}

func (env *testEnv) request(method, path, body string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, env.e.NewContext(req, rec)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) webserver.RestResult {
	t.Helper()
	var envelope webserver.RestResult
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestOperatorLogin(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/api/v1/admin/login",
		`{"username":"admin","password":"eazybuy"}`)
	require.NoError(t, env.h.login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "super", data["level"])

	rec, c = env.request(http.MethodPost, "/api/v1/admin/login",
		`{"username":"admin","password":"wrong"}`)
	require.NoError(t, env.h.login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateStockRefusesBelowReservedWithoutForce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.ledger.ReserveStock(ctx, 101, 4, "checkout"))

	rec, c := env.request(http.MethodPut, "/api/v1/admin/inventory/101/stock",
		`{"quantity":2,"note":"recount"}`)
	c.SetParamNames("id")
	c.SetParamValues("101")
	require.NoError(t, env.h.updateStock(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "BELOW_RESERVED", decodeEnvelope(t, rec).Code)

	rec, c = env.request(http.MethodPut, "/api/v1/admin/inventory/101/stock",
		`{"quantity":2,"note":"recount","force":true}`)
	c.SetParamNames("id")
	c.SetParamValues("101")
	require.NoError(t, env.h.updateStock(c))
	require.Equal(t, http.StatusOK, rec.Code)

	item, err := env.ledger.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 4, item.Reserved, "force keeps the holds on the books")
}

func TestUpdateStockWritesAuditTrail(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPut, "/api/v1/admin/inventory/101/stock",
		`{"quantity":25,"note":"restock delivery"}`)
	c.SetParamNames("id")
	c.SetParamValues("101")
	require.NoError(t, env.h.updateStock(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rows, total, err := env.ledger.ListTransactions(context.Background(), 101, time.Time{}, time.Time{}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, domain.TxnStockSet, rows[0].Type)
	assert.Equal(t, 10, rows[0].QuantityBefore)
	assert.Equal(t, 25, rows[0].QuantityAfter)
	assert.Equal(t, "restock delivery", rows[0].Note)
}

func TestDiscountCrud(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/api/v1/admin/discounts",
		`{"code":"save20","type":"fixed_amount","value":20,"is_active":true}`)
	require.NoError(t, env.h.createDiscount(c))
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeEnvelope(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "SAVE20", created["code"], "codes normalize to upper case")

	// duplicate code is a conflict, not a silent overwrite
	rec, c = env.request(http.MethodPost, "/api/v1/admin/discounts",
		`{"code":"SAVE20","type":"fixed_amount","value":30,"is_active":true}`)
	require.NoError(t, env.h.createDiscount(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_CODE", decodeEnvelope(t, rec).Code)

	// bad type rejected
	rec, c = env.request(http.MethodPost, "/api/v1/admin/discounts",
		`{"code":"ODD","type":"mystery","value":5}`)
	require.NoError(t, env.h.createDiscount(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// percentage bounds
	rec, c = env.request(http.MethodPost, "/api/v1/admin/discounts",
		`{"code":"TOOMUCH","type":"percentage","value":150}`)
	require.NoError(t, env.h.createDiscount(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, total := range []float64{100, 200, 600} {
		o := &domain.Order{
			OrderNo: orders.NextOrderNo(), Status: domain.OrderPaid,
			Total: total, PlacedAt: time.Now(),
		}
		require.NoError(t, env.h.orders.Create(ctx, o))
	}

	rec, c := env.request(http.MethodGet, "/api/v1/admin/dashboard", "")
	require.NoError(t, env.h.dashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec).Data.(map[string]interface{})
	assert.EqualValues(t, 900, data["revenue"])
	assert.EqualValues(t, 300, data["mean_order_value"])
	assert.EqualValues(t, 200, data["median_order_value"])
	counts := data["order_counts"].(map[string]interface{})
	assert.EqualValues(t, 3, counts[domain.OrderPaid])
}
