// Package handler содержит HTTP-обработчики API сервиса маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/ecommerce-system/internal/middleware"
	"github.com/mmeshcher/ecommerce-system/internal/model"
	"github.com/mmeshcher/ecommerce-system/internal/repository"
	"github.com/mmeshcher/ecommerce-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, name, email, password string, role model.Role) (int64, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Identity(ctx context.Context, userID int64) (*model.User, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, supplierID int64, in model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, supplierID, id int64, in model.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, supplierID, id int64) error
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	ListOrdersByProduct(ctx context.Context, supplierID, productID int64) ([]model.ProductOrder, error)
	PlaceOrder(ctx context.Context, customerID int64, items []model.OrderItemRequest) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API сервиса маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type registerRequest struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	_, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		var valErr *service.ValidationError
		if errors.As(err, &valErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": valErr.Fields})
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login выполняет аутентификацию пользователя и выпуск токена доступа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token, err := h.authMiddleware.IssueToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.Int64("userID", user.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{User: user, Token: token})
}

// GetIdentity возвращает личность текущего пользователя по его токену.
func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, err := h.service.Identity(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("get identity error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListProducts возвращает каталог товаров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProduct создаёт товар текущего поставщика.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var in model.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), supplierID, in)
	if err != nil {
		var valErr *service.ValidationError
		if errors.As(err, &valErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": valErr.Fields})
			return
		}
		h.logger.Error("create product error", zap.Error(err), zap.Int64("supplierID", supplierID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// UpdateProduct обновляет товар текущего поставщика.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := parseID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var in model.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), supplierID, id, in)
	if err != nil {
		var valErr *service.ValidationError
		if errors.As(err, &valErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": valErr.Fields})
			return
		}
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct удаляет товар текущего поставщика.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := parseID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), supplierID, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProductOrders возвращает заказы товара текущего поставщика.
func (h *Handler) GetProductOrders(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := parseID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.service.ListOrdersByProduct(r.Context(), supplierID, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("list product orders error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if orders == nil {
		orders = []model.ProductOrder{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrders возвращает историю заказов текущего покупателя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

type placeOrderRequest struct {
	Items []model.OrderItemRequest `json:"items"`
}

type orderConfirmationResponse struct {
	ID    int64  `json:"id"`
	Total string `json:"total"`
}

// PlaceOrder размещает заказ текущего покупателя. Любой отказ возвращается
// одним сообщением в поле error, как его покажет клиент.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), customerID, req.Items)
	if err != nil {
		var stockErr *repository.InsufficientStockError
		if errors.As(err, &stockErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": stockErr.Error()})
			return
		}
		if errors.Is(err, repository.ErrProductNotFound) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "product not found"})
			return
		}
		var valErr *service.ValidationError
		if errors.As(err, &valErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": firstMessage(valErr.Fields)})
			return
		}
		h.logger.Error("place order error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, orderConfirmationResponse{
		ID:    order.ID,
		Total: order.Total.StringFixed(2),
	})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func firstMessage(fields map[string][]string) string {
	for _, msgs := range fields {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return "validation failed"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
