package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/ecommerce-system/internal/middleware"
	"github.com/mmeshcher/ecommerce-system/internal/model"
	"github.com/mmeshcher/ecommerce-system/internal/repository"
	"github.com/mmeshcher/ecommerce-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	identityUser *model.User
	identityErr  error

	productsResp []model.Product
	productsErr  error

	createProductResp *model.Product
	createProductErr  error

	updateProductResp *model.Product
	updateProductErr  error

	deleteProductErr error

	customerOrdersResp []model.Order
	customerOrdersErr  error

	productOrdersResp []model.ProductOrder
	productOrdersErr  error

	placeOrderResp  *model.Order
	placeOrderErr   error
	placeOrderItems []model.OrderItemRequest
}

func (s *stubService) Register(ctx context.Context, name, email, password string, role model.Role) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) Identity(ctx context.Context, userID int64) (*model.User, error) {
	return s.identityUser, s.identityErr
}

func (s *stubService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.productsResp, s.productsErr
}

func (s *stubService) CreateProduct(ctx context.Context, supplierID int64, in model.ProductInput) (*model.Product, error) {
	return s.createProductResp, s.createProductErr
}

func (s *stubService) UpdateProduct(ctx context.Context, supplierID, id int64, in model.ProductInput) (*model.Product, error) {
	return s.updateProductResp, s.updateProductErr
}

func (s *stubService) DeleteProduct(ctx context.Context, supplierID, id int64) error {
	return s.deleteProductErr
}

func (s *stubService) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return s.customerOrdersResp, s.customerOrdersErr
}

func (s *stubService) ListOrdersByProduct(ctx context.Context, supplierID, productID int64) ([]model.ProductOrder, error) {
	return s.productOrdersResp, s.productOrdersErr
}

func (s *stubService) PlaceOrder(ctx context.Context, customerID int64, items []model.OrderItemRequest) (*model.Order, error) {
	s.placeOrderItems = items
	return s.placeOrderResp, s.placeOrderErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

func authedRequest(t *testing.T, h *Handler, method, target string, body []byte, userID int64, role model.Role) *http.Request {
	t.Helper()

	token, err := h.authMiddleware.IssueToken(userID, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(registerRequest{
		Name:     "Acme Supplies",
		Email:    "acme@example.com",
		Password: "password123",
		Role:     model.RoleSupplier,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc := &stubService{
		registerErr: &service.ValidationError{Fields: map[string][]string{
			"email": {"The email has already been taken."},
		}},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(registerRequest{
		Name:     "Acme Supplies",
		Email:    "acme@example.com",
		Password: "password123",
		Role:     model.RoleSupplier,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}

	var payload struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Errors["email"]) != 1 || payload.Errors["email"][0] != "The email has already been taken." {
		t.Fatalf("unexpected errors payload: %+v", payload.Errors)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(loginRequest{
		Email:    "acme@example.com",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestLogin_ReturnsUserAndToken(t *testing.T) {
	svc := &stubService{
		authUser: &model.User{
			ID:    7,
			Name:  "Acme Supplies",
			Email: "acme@example.com",
			Role:  model.RoleSupplier,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(loginRequest{
		Email:    "acme@example.com",
		Password: "password123",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp loginResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token in response")
	}
	if resp.User == nil || resp.User.ID != 7 || resp.User.Role != model.RoleSupplier {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
}

func TestGetIdentity_UnknownUser(t *testing.T) {
	svc := &stubService{
		identityErr: repository.ErrUserNotFound,
	}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodGet, "/api/user", nil, 99, model.RoleCustomer)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.GetIdentity)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestListProducts_EmptyCatalog(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	h.ListProducts(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var products []model.Product
	if err := json.NewDecoder(res.Body).Decode(&products); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty array, got %v", products)
	}
}

func TestListProducts_ReturnsCatalog(t *testing.T) {
	svc := &stubService{
		productsResp: []model.Product{
			{ID: 3, Name: "widget", Price: decimal.RequireFromString("3.50"), Quantity: 10, SupplierID: 1},
			{ID: 1, Name: "gadget", Price: decimal.RequireFromString("12.00"), Quantity: 2, SupplierID: 1},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	h.ListProducts(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var products []model.Product
	if err := json.NewDecoder(res.Body).Decode(&products); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	if products[0].ID != 3 || products[1].ID != 1 {
		t.Fatalf("catalog order changed: %d, %d", products[0].ID, products[1].ID)
	}
	if !products[0].Price.Equal(decimal.RequireFromString("3.50")) {
		t.Fatalf("price = %s, want 3.50", products[0].Price)
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	svc := &stubService{
		placeOrderResp: &model.Order{
			ID:    15,
			Total: decimal.RequireFromString("27.50"),
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(placeOrderRequest{
		Items: []model.OrderItemRequest{
			{ProductID: 3, Quantity: 5},
			{ProductID: 1, Quantity: 1},
		},
	})

	req := authedRequest(t, h, http.MethodPost, "/api/orders", body, 7, model.RoleCustomer)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.PlaceOrder)).ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp orderConfirmationResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 15 || resp.Total != "27.50" {
		t.Fatalf("confirmation = %+v, want id 15 total 27.50", resp)
	}

	if len(svc.placeOrderItems) != 2 || svc.placeOrderItems[0].ProductID != 3 {
		t.Fatalf("service got items %+v", svc.placeOrderItems)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	svc := &stubService{
		placeOrderErr: &repository.InsufficientStockError{Product: "widget"},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(placeOrderRequest{
		Items: []model.OrderItemRequest{{ProductID: 3, Quantity: 50}},
	})

	req := authedRequest(t, h, http.MethodPost, "/api/orders", body, 7, model.RoleCustomer)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.PlaceOrder)).ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error != "not enough stock for widget" {
		t.Fatalf("error = %q, want %q", payload.Error, "not enough stock for widget")
	}
}

func TestDeleteProduct_NotFound(t *testing.T) {
	svc := &stubService{
		deleteProductErr: repository.ErrProductNotFound,
	}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodDelete, "/api/products/5", nil, 1, model.RoleSupplier)
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestRouter_RoleSeparation(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	// Покупатель не может управлять товарами.
	body, _ := json.Marshal(model.ProductInput{Name: "widget"})
	req := authedRequest(t, h, http.MethodPost, "/api/products", body, 7, model.RoleCustomer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("customer create product: status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}

	// Поставщик не может оформлять заказы.
	req = authedRequest(t, h, http.MethodPost, "/api/orders", []byte(`{"items":[]}`), 1, model.RoleSupplier)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("supplier place order: status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}
