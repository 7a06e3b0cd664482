package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

const testFeed = `{"products":[
  {"selectedProduct":"A","name":"Alpha","product":{"image":"http://img/a.png"},"price":{"value":10},"sku":"a-1"},
  {"selectedProduct":"B","name":"Beta","product":{"image":"http://img/b.png"},"price":{"value":20}}
]}`

// --- Test Helpers ---

type testEnv struct {
	router     http.Handler
	repo       *memory.WishlistRepository
	feedStatus atomic.Int32
	feedBody   atomic.Value
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{repo: memory.New()}
	env.feedStatus.Store(http.StatusOK)
	env.feedBody.Store(testFeed)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := int(env.feedStatus.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(env.feedBody.Load().(string)))
			return
		}
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	}))
	t.Cleanup(feed.Close)

	feedClient := catalog.NewClient(httpclient.New(httpclient.DefaultConfig()), feed.URL, time.Second, logger.Discard())
	svc := service.NewWishlistService(env.repo, feedClient, nil, logger.Discard(), 0)

	hh := health.NewHandler()
	hh.Register("store", env.repo.Ping)

	env.router = NewRouter(svc, hh, logger.Discard(), RouterConfig{CORS: middleware.DefaultCORSConfig()})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- GET /api/products ---

func TestListProducts_RelaysFeed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, testFeed, rec.Body.String())
}

func TestListProducts_FeedDown(t *testing.T) {
	env := newTestEnv(t)
	env.feedStatus.Store(http.StatusServiceUnavailable)

	rec := env.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Falha ao buscar produtos"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestListProducts_NumericIDsRelayed(t *testing.T) {
	const feed = `{"products":[{"selectedProduct":42,"name":"Answer","product":{"image":"http://img/42.png"}}]}`
	env := newTestEnv(t)
	env.feedBody.Store(feed)

	rec := env.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, feed, rec.Body.String())

	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"42"}`)
	rec = env.do(t, http.MethodGet, "/api/wishlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"selectedProduct":42,"name":"Answer","product":{"image":"http://img/42.png"}}]`, rec.Body.String())
}

// --- POST /api/wishlist/add ---

func TestAddToWishlist_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AddResponse](t, rec)
	assert.Equal(t, "Produto adicionado à wishlist", resp.Message)
	assert.NotEmpty(t, resp.ID)

	found, err := env.repo.Exists(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAddToWishlist_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing productId", body: `{}`, field: "productId"},
		{name: "blank productId", body: `{"productId":"  "}`, field: "productId"},
		{name: "too long", body: `{"productId":"` + strings.Repeat("x", 257) + `"}`, field: "productId"},
		{name: "malformed json", body: `{"productId":`},
		{name: "wrong type", body: `{"productId":42}`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/api/wishlist/add", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decode[map[string]any](t, rec)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			if tt.field != "" {
				fields, ok := body["fields"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, fields, tt.field)
			}

			entries, _ := env.repo.List(context.Background(), 10)
			assert.Empty(t, entries)
		})
	}
}

// --- GET /api/wishlist/check/{productId} ---

func TestCheckWishlist_EmptyStore(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/wishlist/check/X", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isInWishlist":false}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCheckWishlist_AfterAdd(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`)

	rec := env.do(t, http.MethodGet, "/api/wishlist/check/A", "")
	assert.JSONEq(t, `{"isInWishlist":true}`, rec.Body.String())
}

func TestCheckWishlist_EscapedProductID(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		path      string
	}{
		{name: "slash", productID: "a/b", path: "/api/wishlist/check/a%2Fb"},
		{name: "space", productID: "a b", path: "/api/wishlist/check/a%20b"},
		{name: "literal percent", productID: "50%", path: "/api/wishlist/check/50%25"},
		{name: "escaped percent sequence", productID: "a%41", path: "/api/wishlist/check/a%2541"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"`+tt.productID+`"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = env.do(t, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"isInWishlist":true}`, rec.Body.String())
		})
	}
}

// --- GET /api/wishlist ---

func TestGetWishlist_FiltersCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`)

	rec := env.do(t, http.MethodGet, "/api/wishlist", "")
	require.Equal(t, http.StatusOK, rec.Code)

	products := decode[[]map[string]any](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "A", products[0]["selectedProduct"])
	assert.Equal(t, "a-1", products[0]["sku"], "unknown feed fields are preserved")
}

func TestGetWishlist_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/wishlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetWishlist_DuplicatesCollapse(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"B"}`)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"B"}`)

	rec := env.do(t, http.MethodGet, "/api/wishlist", "")
	products := decode[[]domain.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "B", products[0].ID())
}

func TestGetWishlist_FeedDown(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`)
	env.feedStatus.Store(http.StatusBadGateway)

	rec := env.do(t, http.MethodGet, "/api/wishlist", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Falha ao buscar produtos filtrados da wishlist", decode[map[string]any](t, rec)["error"])
}

// --- DELETE /api/wishlist/remove ---

func TestRemoveFromWishlist(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`)
	env.do(t, http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`)

	rec := env.do(t, http.MethodDelete, "/api/wishlist/remove", `{"productId":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[RemoveResponse](t, rec)
	assert.Equal(t, RemoveResponse{Message: "Produto removido da wishlist", ProductID: "A", Removed: 2}, resp)

	rec = env.do(t, http.MethodGet, "/api/wishlist/check/A", "")
	assert.JSONEq(t, `{"isInWishlist":false}`, rec.Body.String())
}

func TestRemoveFromWishlist_Absent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/wishlist/remove", `{"productId":"nope"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[RemoveResponse](t, rec).Removed)
}

func TestRemoveFromWishlist_MissingBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/wishlist/remove", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Store failures ---

var errDown = errors.New("connection refused")

type failingRepo struct{}

func (failingRepo) Add(context.Context, string) (string, error) { return "", errDown }

func (failingRepo) Exists(context.Context, string) (bool, error) { return false, errDown }

func (failingRepo) List(context.Context, int) ([]domain.WishlistEntry, error) { return nil, errDown }

func (failingRepo) RemoveByProductID(context.Context, string) (int, error) { return 0, errDown }

func (failingRepo) Ping(context.Context) error { return errDown }

func TestStoreFailures_UseRouteMessages(t *testing.T) {
	feed := catalog.NewClient(httpclient.New(httpclient.DefaultConfig()), "http://127.0.0.1:1", time.Second, logger.Discard())
	svc := service.NewWishlistService(failingRepo{}, feed, nil, logger.Discard(), 0)
	router := NewRouter(svc, health.NewHandler(), logger.Discard(), RouterConfig{})

	tests := []struct {
		method, path, body, want string
	}{
		{http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`, MsgAddFailed},
		{http.MethodGet, "/api/wishlist/check/A", "", MsgCheckFailed},
		{http.MethodGet, "/api/wishlist", "", MsgListFailed},
		{http.MethodDelete, "/api/wishlist/remove", `{"productId":"A"}`, MsgRemoveFailed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.want, body["error"])
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

// --- Rate limiting ---

func TestRateLimiter_GuardsWritesOnly(t *testing.T) {
	svc := service.NewWishlistService(memory.New(), nil, nil, logger.Discard(), 0)
	rl := middleware.NewRateLimiter(0.001, 1, logger.Discard())
	t.Cleanup(rl.Stop)
	router := NewRouter(svc, health.NewHandler(), logger.Discard(), RouterConfig{RateLimiter: rl})

	send := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/wishlist/add", `{"productId":"A"}`))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/wishlist/check/A", ""))
}

// --- Operational endpoints ---

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", "").Code)

	env.do(t, http.MethodGet, "/api/wishlist/check/A", "")
	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/wishlist/remove", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
