// Package gateway предоставляет HTTP-клиент для API маркетплейса.
//
// Клиент подставляет bearer-токен из хранилища в каждый запрос. Любой
// ответ 401 означает, что сессия недействительна: токен удаляется из
// хранилища, вызывается зарегистрированный обработчик, и только после
// этого ошибка возвращается вызывающему.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmeshcher/ecommerce-system/internal/credentials"
	"github.com/mmeshcher/ecommerce-system/internal/model"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized возвращается, когда сервер отклонил токен доступа.
	ErrUnauthorized = errors.New("authorization expired")
)

// ValidationError содержит ошибки валидации по полям формы.
// Порядок сообщений внутри поля сохраняется как в ответе сервера.
type ValidationError struct {
	Fields map[string][]string
}

// Error возвращает текст первой ошибки каждого поля в алфавитном порядке полей.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if msgs := e.Fields[f]; len(msgs) > 0 {
			parts = append(parts, f+": "+msgs[0])
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CheckoutError содержит причину отказа сервера в оформлении заказа.
type CheckoutError struct {
	Reason string
}

// Error возвращает причину отказа дословно, как сообщил сервер.
func (e *CheckoutError) Error() string {
	return e.Reason
}

// Client инкапсулирует HTTP-взаимодействие с сервисом маркетплейса.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          credentials.Store
	onUnauthorized func()
}

// NewClient создаёт клиент API маркетплейса по указанному адресу.
// Токен для авторизованных запросов берётся из creds.
func NewClient(baseURL string, creds credentials.Store) *Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		creds: creds,
	}
}

// OnUnauthorized регистрирует обработчик, вызываемый после того, как
// сервер отклонил токен и токен удалён из хранилища.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// Authenticate выполняет вход по email и паролю и возвращает личность
// пользователя вместе с токеном доступа.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	var resp loginResponse
	status, err := c.do(ctx, http.MethodPost, "/api/login", loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusUnauthorized {
		return nil, "", ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return nil, "", fmt.Errorf("login: unexpected status: %d", status)
	}
	return &resp.User, resp.Token, nil
}

type registerRequest struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type validationResponse struct {
	Errors map[string][]string `json:"errors"`
}

// Register регистрирует нового пользователя с указанной ролью.
// При ошибках валидации возвращается *ValidationError с сообщениями по полям.
func (c *Client) Register(ctx context.Context, name, email, password string, role model.Role) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/register", registerRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	}, false)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusUnprocessableEntity:
		var body validationResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Errors) == 0 {
			return fmt.Errorf("register: unexpected status: %d", resp.StatusCode)
		}
		return &ValidationError{Fields: body.Errors}
	default:
		return fmt.Errorf("register: unexpected status: %d", resp.StatusCode)
	}
}

// FetchIdentity возвращает личность пользователя по сохранённому токену.
func (c *Client) FetchIdentity(ctx context.Context) (*model.User, error) {
	var user model.User
	status, err := c.do(ctx, http.MethodGet, "/api/user", nil, &user, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch identity: unexpected status: %d", status)
	}
	return &user, nil
}

// ListProducts возвращает каталог товаров в порядке, заданном сервером.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	status, err := c.do(ctx, http.MethodGet, "/api/products", nil, &products, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list products: unexpected status: %d", status)
	}
	return products, nil
}

// CreateProduct создаёт новый товар текущего поставщика.
func (c *Client) CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	var product model.Product
	status, err := c.do(ctx, http.MethodPost, "/api/products", in, &product, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, fmt.Errorf("create product: unexpected status: %d", status)
	}
	return &product, nil
}

// UpdateProduct обновляет товар текущего поставщика.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in model.ProductInput) (*model.Product, error) {
	var product model.Product
	status, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/products/%d", id), in, &product, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("update product: unexpected status: %d", status)
	}
	return &product, nil
}

// DeleteProduct удаляет товар текущего поставщика.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	status, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil, true)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("delete product: unexpected status: %d", status)
	}
	return nil
}

// ListOrders возвращает историю заказов текущего покупателя.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	status, err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return nil, fmt.Errorf("list orders: unexpected status: %d", status)
	}
	return orders, nil
}

// ListProductOrders возвращает заказы указанного товара текущего поставщика.
func (c *Client) ListProductOrders(ctx context.Context, productID int64) ([]model.ProductOrder, error) {
	var orders []model.ProductOrder
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d/orders", productID), nil, &orders, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return nil, fmt.Errorf("list product orders: unexpected status: %d", status)
	}
	return orders, nil
}

type placeOrderRequest struct {
	Items []model.OrderItemRequest `json:"items"`
}

// OrderConfirmation содержит подтверждение принятого сервером заказа.
type OrderConfirmation struct {
	ID    int64  `json:"id"`
	Total string `json:"total"`
}

type rejectionResponse struct {
	Error string `json:"error"`
}

// PlaceOrder отправляет заказ из указанных позиций, сохраняя их порядок.
// Отказ сервера (например, нехватка остатков) возвращается как *CheckoutError
// с дословной причиной.
func (c *Client) PlaceOrder(ctx context.Context, items []model.OrderItemRequest) (*OrderConfirmation, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/orders", placeOrderRequest{Items: items}, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.unauthorized()
	}

	if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict {
		var body rejectionResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			return nil, fmt.Errorf("place order: unexpected status: %d", resp.StatusCode)
		}
		return nil, &CheckoutError{Reason: body.Error}
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place order: unexpected status: %d", resp.StatusCode)
	}

	var conf OrderConfirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &conf, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, authed bool) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token, ok := c.creds.Get(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

// do выполняет запрос и декодирует тело ответа в out, если out != nil и
// сервер вернул содержимое. Ответ 401 обрабатывается до возврата ошибки.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) (int, error) {
	req, err := c.newRequest(ctx, method, path, body, authed)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if authed && resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, c.unauthorized()
	}

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// unauthorized удаляет токен из хранилища и уведомляет подписчика,
// после чего возвращает ErrUnauthorized.
func (c *Client) unauthorized() error {
	_ = c.creds.Clear()
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return ErrUnauthorized
}
