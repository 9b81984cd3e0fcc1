// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecommerce-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrEmailExists возвращается при попытке зарегистрировать уже занятый email.
var (
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар не существует или
	// не принадлежит указанному поставщику.
	ErrProductNotFound = errors.New("product not found")
)

// InsufficientStockError возвращается, когда остатка товара не хватает
// для размещаемого заказа.
type InsufficientStockError struct {
	Product string
}

// Error возвращает причину отказа с названием товара.
func (e *InsufficientStockError) Error() string {
	return "not enough stock for " + e.Product
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД
// через миграции. Для чтения и записи цен на каждом соединении
// регистрируется кодек numeric <-> decimal.Decimal.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках: сбоях сериализации,
// дедлоках и сетевых обрывах. Ошибки контекста не ретраятся.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Close закрывает пул соединений.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт пользователя и возвращает его идентификатор.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
			name, email, passwordHash, string(role),
		).Scan(&id)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	return id, nil
}

// GetUserByEmail возвращает пользователя по email вместе с хэшем пароля.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	var role string

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = $1`,
			email,
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	u.Role = model.Role(role)
	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	var role string

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, role, created_at FROM users WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	u.Role = model.Role(role)
	return &u, nil
}

// ListProducts возвращает каталог товаров в порядке создания.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, supplier_id, name, description, price, quantity FROM products ORDER BY id`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		products = products[:0]
		for rows.Next() {
			var p model.Product
			if err := rows.Scan(&p.ID, &p.SupplierID, &p.Name, &p.Description, &p.Price, &p.Quantity); err != nil {
				return err
			}
			products = append(products, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// CreateProduct создаёт товар указанного поставщика.
func (r *PostgresRepository) CreateProduct(ctx context.Context, supplierID int64, in model.ProductInput) (*model.Product, error) {
	p := model.Product{
		SupplierID:  supplierID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
	}

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO products (supplier_id, name, description, price, quantity)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			supplierID, in.Name, in.Description, in.Price, in.Quantity,
		).Scan(&p.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return &p, nil
}

// UpdateProduct обновляет товар, если он принадлежит указанному поставщику.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, supplierID, id int64, in model.ProductInput) (*model.Product, error) {
	p := model.Product{
		ID:          id,
		SupplierID:  supplierID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
	}

	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE products SET name = $1, description = $2, price = $3, quantity = $4
			 WHERE id = $5 AND supplier_id = $6`,
			in.Name, in.Description, in.Price, in.Quantity, id, supplierID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return &p, nil
}

// DeleteProduct удаляет товар, если он принадлежит указанному поставщику.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, supplierID, id int64) error {
	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM products WHERE id = $1 AND supplier_id = $2`,
			id, supplierID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	return nil
}

// ListOrdersByCustomer возвращает заказы покупателя с позициями,
// отсортированные от новых к старым.
func (r *PostgresRepository) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	var orders []model.Order

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT o.id, o.total, o.created_at,
			        i.id, i.quantity, i.product_id, i.product_name, i.product_price
			 FROM orders o
			 JOIN order_items i ON i.order_id = o.id
			 WHERE o.customer_id = $1
			 ORDER BY o.created_at DESC, o.id DESC, i.id`,
			customerID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		orders = orders[:0]
		for rows.Next() {
			var (
				orderID   int64
				total     decimal.Decimal
				createdAt time.Time
				item      model.OrderItem
			)
			if err := rows.Scan(&orderID, &total, &createdAt,
				&item.ID, &item.Quantity, &item.Product.ID, &item.Product.Name, &item.Product.Price); err != nil {
				return err
			}

			if len(orders) == 0 || orders[len(orders)-1].ID != orderID {
				orders = append(orders, model.Order{
					ID:        orderID,
					Total:     total,
					CreatedAt: createdAt,
				})
			}
			last := &orders[len(orders)-1]
			last.Items = append(last.Items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list orders by customer: %w", err)
	}

	return orders, nil
}

// ListOrdersByProduct возвращает пары {заказ, количество} для товара,
// если товар принадлежит указанному поставщику.
func (r *PostgresRepository) ListOrdersByProduct(ctx context.Context, supplierID, productID int64) ([]model.ProductOrder, error) {
	var result []model.ProductOrder

	err := r.withRetry(ctx, func() error {
		var owner int64
		if err := r.pool.QueryRow(ctx,
			`SELECT supplier_id FROM products WHERE id = $1`, productID,
		).Scan(&owner); err != nil {
			return err
		}
		if owner != supplierID {
			return ErrProductNotFound
		}

		rows, err := r.pool.Query(ctx,
			`SELECT o.id, o.total, o.created_at, i.quantity, u.id, u.name
			 FROM order_items i
			 JOIN orders o ON o.id = i.order_id
			 JOIN users u ON u.id = o.customer_id
			 WHERE i.product_id = $1
			 ORDER BY o.created_at DESC, o.id DESC`,
			productID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var po model.ProductOrder
			var customer model.User
			if err := rows.Scan(&po.Order.ID, &po.Order.Total, &po.Order.CreatedAt, &po.Quantity,
				&customer.ID, &customer.Name); err != nil {
				return err
			}
			po.Order.User = &customer
			result = append(result, po)
		}
		return rows.Err()
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("list orders by product: %w", err)
	}

	return result, nil
}

// CreateOrder размещает заказ в одной транзакции: блокирует строки товаров,
// проверяет остатки, списывает количество и создаёт заказ с позициями.
// При нехватке остатка возвращается InsufficientStockError, транзакция
// откатывается целиком.
func (r *PostgresRepository) CreateOrder(ctx context.Context, customerID int64, items []model.OrderItemRequest) (*model.Order, error) {
	var order model.Order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		total := decimal.Zero

		type lockedProduct struct {
			id    int64
			name  string
			price decimal.Decimal
		}
		locked := make([]lockedProduct, 0, len(items))

		for _, item := range items {
			var lp lockedProduct
			var available int

			err := tx.QueryRow(ctx,
				`SELECT id, name, price, quantity FROM products WHERE id = $1 FOR UPDATE`,
				item.ProductID,
			).Scan(&lp.id, &lp.name, &lp.price, &available)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrProductNotFound
				}
				return err
			}

			if available < item.Quantity {
				return &InsufficientStockError{Product: lp.name}
			}

			if _, err := tx.Exec(ctx,
				`UPDATE products SET quantity = quantity - $1 WHERE id = $2`,
				item.Quantity, item.ProductID,
			); err != nil {
				return err
			}

			total = total.Add(lp.price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			locked = append(locked, lp)
		}

		var orderID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO orders (customer_id, total) VALUES ($1, $2) RETURNING id`,
			customerID, total,
		).Scan(&orderID); err != nil {
			return err
		}

		for i, item := range items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity)
				 VALUES ($1, $2, $3, $4, $5)`,
				orderID, item.ProductID, locked[i].name, locked[i].price, item.Quantity,
			); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		order = model.Order{ID: orderID, Total: total}
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &order, nil
}
