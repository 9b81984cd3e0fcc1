package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/ecommerce-system/internal/model"
	"github.com/mmeshcher/ecommerce-system/internal/repository"
)

type stubRepo struct {
	createUserID  int64
	createUserErr error

	userByEmail    *model.User
	userByEmailErr error

	createOrderResp  *model.Order
	createOrderErr   error
	createOrderItems []model.OrderItemRequest

	createdName  string
	createdEmail string
	createdHash  []byte
	createdRole  model.Role
}

func (r *stubRepo) Close() error { return nil }

func (r *stubRepo) CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.Role) (int64, error) {
	r.createdName = name
	r.createdEmail = email
	r.createdHash = passwordHash
	r.createdRole = role
	return r.createUserID, r.createUserErr
}

func (r *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.userByEmail, r.userByEmailErr
}

func (r *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (r *stubRepo) ListProducts(ctx context.Context) ([]model.Product, error) {
	return nil, nil
}

func (r *stubRepo) CreateProduct(ctx context.Context, supplierID int64, in model.ProductInput) (*model.Product, error) {
	return &model.Product{Name: in.Name, SupplierID: supplierID}, nil
}

func (r *stubRepo) UpdateProduct(ctx context.Context, supplierID, id int64, in model.ProductInput) (*model.Product, error) {
	return &model.Product{ID: id, Name: in.Name, SupplierID: supplierID}, nil
}

func (r *stubRepo) DeleteProduct(ctx context.Context, supplierID, id int64) error {
	return nil
}

func (r *stubRepo) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return nil, nil
}

func (r *stubRepo) ListOrdersByProduct(ctx context.Context, supplierID, productID int64) ([]model.ProductOrder, error) {
	return nil, nil
}

func (r *stubRepo) CreateOrder(ctx context.Context, customerID int64, items []model.OrderItemRequest) (*model.Order, error) {
	r.createOrderItems = items
	return r.createOrderResp, r.createOrderErr
}

func TestRegister_HashesPassword(t *testing.T) {
	repo := &stubRepo{createUserID: 42}
	svc := NewService(repo)

	id, err := svc.Register(context.Background(), "Acme Supplies", "acme@example.com", "password123", model.RoleSupplier)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
	if repo.createdRole != model.RoleSupplier {
		t.Fatalf("role = %q, want supplier", repo.createdRole)
	}
	if err := bcrypt.CompareHashAndPassword(repo.createdHash, []byte("password123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), "", "not-an-email", "short", "")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "email", "password", "role"} {
		if len(valErr.Fields[field]) == 0 {
			t.Fatalf("missing validation message for %q: %+v", field, valErr.Fields)
		}
	}
	if repo.createdEmail != "" {
		t.Fatalf("repository was called despite validation failure")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &stubRepo{createUserErr: repository.ErrEmailExists}
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), "Acme Supplies", "acme@example.com", "password123", model.RoleSupplier)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	msgs := valErr.Fields["email"]
	if len(msgs) != 1 || msgs[0] != "The email has already been taken." {
		t.Fatalf("unexpected email messages: %v", msgs)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo := &stubRepo{
		userByEmail: &model.User{
			ID:           7,
			Email:        "acme@example.com",
			Role:         model.RoleSupplier,
			PasswordHash: hash,
		},
	}
	svc := NewService(repo)

	u, err := svc.Authenticate(context.Background(), "acme@example.com", "password123")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if u.ID != 7 {
		t.Fatalf("user id = %d, want 7", u.ID)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo := &stubRepo{
		userByEmail: &model.User{ID: 7, PasswordHash: hash},
	}
	svc := NewService(repo)

	_, err = svc.Authenticate(context.Background(), "acme@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	repo := &stubRepo{userByEmailErr: repository.ErrUserNotFound}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "password123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), 7, nil)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.createOrderItems != nil {
		t.Fatalf("repository was called with empty items")
	}
}

func TestPlaceOrder_NonPositiveQuantity(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), 7, []model.OrderItemRequest{
		{ProductID: 1, Quantity: 0},
	})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPlaceOrder_PassesItemsThrough(t *testing.T) {
	repo := &stubRepo{
		createOrderResp: &model.Order{ID: 15},
	}
	svc := NewService(repo)

	items := []model.OrderItemRequest{
		{ProductID: 3, Quantity: 5},
		{ProductID: 1, Quantity: 1},
	}
	order, err := svc.PlaceOrder(context.Background(), 7, items)
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if order.ID != 15 {
		t.Fatalf("order id = %d, want 15", order.ID)
	}
	if len(repo.createOrderItems) != 2 || repo.createOrderItems[0].ProductID != 3 {
		t.Fatalf("repository got items %+v", repo.createOrderItems)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), 1, model.ProductInput{Name: ""})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
