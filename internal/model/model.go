// Package model содержит доменные сущности маркетплейса.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role определяет роль пользователя в системе.
type Role string

const (
	RoleSupplier Role = "supplier"
	RoleCustomer Role = "customer"
)

// Valid сообщает, является ли роль одной из поддерживаемых.
func (r Role) Valid() bool {
	return r == RoleSupplier || r == RoleCustomer
}

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Product описывает товар из каталога поставщика.
// Quantity содержит доступный остаток на стороне сервера; клиент хранит
// только снимок, который может устареть.
type Product struct {
	ID          int64           `json:"id"`
	SupplierID  int64           `json:"supplier_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ProductInput содержит поля товара, задаваемые поставщиком.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Order описывает заказ покупателя. Агрегат принадлежит серверу,
// клиент его не изменяет.
type Order struct {
	ID        int64           `json:"id"`
	Total     decimal.Decimal `json:"total"`
	User      *User           `json:"user,omitempty"`
	Items     []OrderItem     `json:"order_items,omitempty"`
	CreatedAt time.Time       `json:"-"`
}

// OrderItem описывает одну позицию заказа со снимком товара.
type OrderItem struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// ProductOrder описывает заказ конкретного товара в разрезе поставщика:
// сам заказ и заказанное количество.
type ProductOrder struct {
	Order    Order `json:"order"`
	Quantity int   `json:"quantity"`
}

// OrderItemRequest описывает пару {товар, количество} при оформлении заказа.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Session описывает состояние клиентской сессии: личность пользователя
// и токен доступа. User != nil влечёт непустой Token.
type Session struct {
	User  *User
	Token string
}

// Authenticated сообщает, установлена ли в сессии личность пользователя.
func (s Session) Authenticated() bool {
	return s.User != nil
}
