// Package service реализует бизнес-логику сервиса маркетплейса.
package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/ecommerce-system/internal/model"
	"github.com/mmeshcher/ecommerce-system/internal/repository"
	"github.com/mmeshcher/ecommerce-system/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError содержит ошибки валидации, сгруппированные по полям.
type ValidationError struct {
	Fields map[string][]string
}

// Error возвращает краткое описание ошибки валидации.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, supplierID int64, in model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, supplierID, id int64, in model.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, supplierID, id int64) error
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	ListOrdersByProduct(ctx context.Context, supplierID, productID int64) ([]model.ProductOrder, error)
	CreateOrder(ctx context.Context, customerID int64, items []model.OrderItemRequest) (*model.Order, error)
}

// Service содержит бизнес-логику сервиса маркетплейса.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Register регистрирует нового пользователя. Ошибки полей, включая уже
// занятый email, возвращаются как *ValidationError.
func (s *Service) Register(ctx context.Context, name, email, password string, role model.Role) (int64, error) {
	if errs := validation.ValidateRegistration(name, email, password, role); errs != nil {
		return 0, &ValidationError{Fields: errs}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, name, email, hashed, role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return 0, &ValidationError{Fields: map[string][]string{
				"email": {"The email has already been taken."},
			}}
		}
		return 0, err
	}

	return id, nil
}

// Authenticate проверяет email и пароль пользователя. Неизвестный email и
// неверный пароль неразличимы для вызывающего: оба дают ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// Identity возвращает пользователя по идентификатору из токена.
func (s *Service) Identity(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// ListProducts возвращает каталог товаров.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// CreateProduct создаёт товар поставщика после валидации полей.
func (s *Service) CreateProduct(ctx context.Context, supplierID int64, in model.ProductInput) (*model.Product, error) {
	if errs := validation.ValidateProductInput(in); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	return s.repo.CreateProduct(ctx, supplierID, in)
}

// UpdateProduct обновляет товар поставщика после валидации полей.
func (s *Service) UpdateProduct(ctx context.Context, supplierID, id int64, in model.ProductInput) (*model.Product, error) {
	if errs := validation.ValidateProductInput(in); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	return s.repo.UpdateProduct(ctx, supplierID, id, in)
}

// DeleteProduct удаляет товар поставщика.
func (s *Service) DeleteProduct(ctx context.Context, supplierID, id int64) error {
	return s.repo.DeleteProduct(ctx, supplierID, id)
}

// ListOrdersByCustomer возвращает историю заказов покупателя.
func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByCustomer(ctx, customerID)
}

// ListOrdersByProduct возвращает заказы товара в разрезе поставщика.
func (s *Service) ListOrdersByProduct(ctx context.Context, supplierID, productID int64) ([]model.ProductOrder, error) {
	return s.repo.ListOrdersByProduct(ctx, supplierID, productID)
}

// PlaceOrder размещает заказ покупателя. Заказ принимается или
// отклоняется целиком.
func (s *Service) PlaceOrder(ctx context.Context, customerID int64, items []model.OrderItemRequest) (*model.Order, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Fields: map[string][]string{
			"items": {"The items field is required."},
		}}
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Fields: map[string][]string{
				"items": {"The quantity must be at least 1."},
			}}
		}
	}

	return s.repo.CreateOrder(ctx, customerID, items)
}
