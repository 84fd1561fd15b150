package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/security"
	cartuc "example.com/commercex-cart/app/internal/usecase/cart"
)

type fakeCartRepository struct {
	mu      sync.Mutex
	items   map[int64]domcart.LineItem
	failErr error
}

func newFakeCartRepository() *fakeCartRepository {
	return &fakeCartRepository{items: make(map[int64]domcart.LineItem)}
}

func (f *fakeCartRepository) ListAll(ctx context.Context) ([]domcart.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]domcart.LineItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f *fakeCartRepository) FindByProductID(ctx context.Context, productID int64) (*domcart.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	item, ok := f.items[productID]
	if !ok {
		return nil, domcart.ErrItemNotFound
	}
	return &item, nil
}

func (f *fakeCartRepository) Upsert(ctx context.Context, item domcart.LineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.items[item.ProductID] = item
	return nil
}

func (f *fakeCartRepository) UpdateQuantity(ctx context.Context, productID int64, quantity int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if item, ok := f.items[productID]; ok {
		item.Quantity = quantity
		f.items[productID] = item
	}
	return nil
}

func (f *fakeCartRepository) DeleteByProductID(ctx context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.items, productID)
	return nil
}

func (f *fakeCartRepository) ClearAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.items = make(map[int64]domcart.LineItem)
	return nil
}

func (f *fakeCartRepository) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failErr
}

func (f *fakeCartRepository) Close() error { return nil }

func (f *fakeCartRepository) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupCartAPI(t *testing.T, policy domcart.ValidationPolicy) (*API, *fakeCartRepository) {
	t.Helper()
	repo := newFakeCartRepository()
	log := quietLogger()
	svc := cartuc.NewService(repo, domcart.NewValidator(policy), log)
	return NewAPI(Dependencies{CartService: svc, Logger: log}), repo
}

func setupCartAPIWithToken(t *testing.T) (*API, string) {
	t.Helper()
	repo := newFakeCartRepository()
	log := quietLogger()
	svc := cartuc.NewService(repo, domcart.NewValidator(domcart.PolicyPresence), log)

	tokenSvc, err := security.NewJWTService("device-secret", time.Hour)
	require.NoError(t, err)
	token, err := tokenSvc.GenerateToken("pixel-7")
	require.NoError(t, err)

	return NewAPI(Dependencies{CartService: svc, TokenService: tokenSvc, Logger: log}), token
}

func newCartRequest(method, path, token string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(api *API, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func phoneBody() map[string]any {
	return map[string]any{
		"title":            "Phone",
		"thumbnail_url":    "https://img/1.png",
		"price":            499.0,
		"discount_percent": 10.0,
		"quantity":         1,
	}
}

type listResponse struct {
	Items []domcart.LineItem `json:"items"`
}

func TestHealth_OK(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_StorageDown_Returns503(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)
	repo.fail(errors.New("disk gone"))

	rec := serve(api, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListCartItems_Empty_ReturnsEmptyArray(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestUpsertCartItem_ThenGet_Returns200(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", "", phoneBody()))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items/1", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got domcart.LineItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, domcart.LineItem{
		ProductID:       1,
		Title:           "Phone",
		ThumbnailURL:    "https://img/1.png",
		Price:           499,
		DiscountPercent: 10,
		Quantity:        1,
	}, got)
}

func TestGetCartItem_Missing_Returns404(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items/999", "", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCartItem_InvalidID_Returns400(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items/abc", "", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertCartItem_EmptyTitle_Returns422(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)
	body := phoneBody()
	body["title"] = ""

	rec := serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", "", body))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, repo.items)
}

func TestUpsertCartItem_StrictPolicyRejectsDiscount_Returns422(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyStrict)
	body := phoneBody()
	body["discount_percent"] = 150.0

	rec := serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", "", body))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpsertCartItem_MalformedJSON_Returns400(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/1", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(api, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotContains(t, rec.Body.String(), "details")
}

func TestAddCartItem_TwiceMergesQuantity_Returns201(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)
	body := phoneBody()
	body["product_id"] = 1
	body["quantity"] = 2

	rec := serve(api, newCartRequest(http.MethodPost, "/api/v1/cart/items", "", body))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = serve(api, newCartRequest(http.MethodPost, "/api/v1/cart/items", "", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, int64(4), repo.items[1].Quantity)
}

func TestAddCartItem_MissingProductID_Returns400(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodPost, "/api/v1/cart/items", "", phoneBody()))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, map[string]any{"product_id": "required"}, resp.Details)
}

func TestUpdateCartItemQuantity_Returns204(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)
	serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", "", phoneBody()))

	rec := serve(api, newCartRequest(http.MethodPatch, "/api/v1/cart/items/1", "", map[string]any{"quantity": 7}))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, int64(7), repo.items[1].Quantity)
	require.Equal(t, "Phone", repo.items[1].Title)
}

func TestUpdateCartItemQuantity_ZeroQuantity_Returns400(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodPatch, "/api/v1/cart/items/1", "", map[string]any{"quantity": 0}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"invalid request","details":{"quantity":"gt"}}`, rec.Body.String())
}

func TestUpdateCartItemQuantity_MissingItem_Returns204WithoutInsert(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)

	rec := serve(api, newCartRequest(http.MethodPatch, "/api/v1/cart/items/5", "", map[string]any{"quantity": 3}))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, repo.items)
}

func TestDeleteCartItem_Returns204(t *testing.T) {
	api, _ := setupCartAPI(t, domcart.PolicyPresence)
	serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", "", phoneBody()))
	serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/2", "", phoneBody()))

	rec := serve(api, newCartRequest(http.MethodDelete, "/api/v1/cart/items/1", "", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items", "", nil))
	var got listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	require.Equal(t, int64(2), got.Items[0].ProductID)
}

func TestClearCart_Returns204(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)
	serve(api, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", "", phoneBody()))

	rec := serve(api, newCartRequest(http.MethodDelete, "/api/v1/cart/items", "", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, repo.items)
}

func TestListCartItems_StorageDown_Returns503(t *testing.T) {
	api, repo := setupCartAPI(t, domcart.PolicyPresence)
	repo.fail(errors.New("database is locked"))

	rec := serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items", "", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotContains(t, rec.Body.String(), "database is locked")
}

func TestCartRoutes_WithTokenService_RequireBearer(t *testing.T) {
	api, token := setupCartAPIWithToken(t)

	rec := serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items", "", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items", "not-a-jwt", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(api, newCartRequest(http.MethodGet, "/api/v1/cart/items", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_WithTokenService_StaysOpen(t *testing.T) {
	api, _ := setupCartAPIWithToken(t)

	rec := serve(api, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
