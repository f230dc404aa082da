// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/printshop-orders/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrOrderNotFound возвращается, если заказ с указанным идентификатором не найден.
var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrAdminNotFound возвращается, если учётная запись оператора не найдена.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAdminExists возвращается при попытке создать оператора с занятым именем.
	ErrAdminExists = errors.New("admin already exists")
)

// Колонки, по которым разрешена сортировка списка заказов. Неизвестное
// поле сортировки сводится к created_at, чтобы имя поля не попадало в SQL.
var sortColumns = map[string]string{
	"customerName":    "customer_name",
	"phone":           "phone",
	"size":            "size",
	"totalAmount":     "total_amount",
	"advanceAmount":   "advance_amount",
	"remainingAmount": "remaining_amount",
	"paymentStatus":   "payment_status",
	"orderDate":       "order_date",
	"deliveryDate":    "delivery_date",
	"createdAt":       "created_at",
	"updatedAt":       "updated_at",
}

const orderColumns = `id, customer_name, phone, size, total_amount, advance_amount,
	 remaining_amount, payment_status, order_date, delivery_date, notes,
	 created_at, updated_at`

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
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

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность хранилища.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateAdmin создаёт учётную запись оператора.
func (r *PostgresRepository) CreateAdmin(ctx context.Context, username string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrAdminExists, username)
		}
		return 0, fmt.Errorf("create admin: %w", err)
	}
	return id, nil
}

// GetAdminByUsername возвращает учётную запись оператора по имени.
func (r *PostgresRepository) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`,
		username,
	)

	var a model.Admin
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	return &a, nil
}

// CreateOrder сохраняет новый заказ, назначая ему идентификатор и системные
// временные метки. Производные поля должны быть рассчитаны до вызова.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	o.ID = uuid.NewString()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, customer_name, phone, size, total_amount, advance_amount,
		                     remaining_amount, payment_status, order_date, delivery_date, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		o.ID, o.CustomerName, o.Phone, o.Size, o.TotalCents, o.AdvanceCents,
		o.RemainingCents, string(o.PaymentStatus), o.OrderDate, o.DeliveryDate, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// UpdateOrder перезаписывает заказ целиком и обновляет updated_at.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, o *model.Order) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE orders
		 SET customer_name = $2, phone = $3, size = $4, total_amount = $5,
		     advance_amount = $6, remaining_amount = $7, payment_status = $8,
		     order_date = $9, delivery_date = $10, notes = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		o.ID, o.CustomerName, o.Phone, o.Size, o.TotalCents, o.AdvanceCents,
		o.RemainingCents, string(o.PaymentStatus), o.OrderDate, o.DeliveryDate, o.Notes,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("update order: %w", err)
	}

	return nil
}

// DeleteOrder удаляет заказ по идентификатору.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// ListOrders возвращает заказы по фильтру в заданном порядке сортировки.
func (r *PostgresRepository) ListOrders(ctx context.Context, filter model.ListFilter, sort model.ListSort) ([]model.Order, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("customer_name ILIKE $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, string(filter.PaymentStatus))
		conds = append(conds, fmt.Sprintf("payment_status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	query += " ORDER BY " + column + " " + direction

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetStats вычисляет агрегированные показатели панели управления. Границы
// текущего дня и месяца передаются извне, чтобы агрегаты не зависели от
// часов сервера БД.
func (r *PostgresRepository) GetStats(ctx context.Context, dayStart, dayEnd, monthStart time.Time) (*model.DashboardStats, error) {
	var stats model.DashboardStats

	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&stats.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	statusCounts := []struct {
		status model.PaymentStatus
		dst    *int64
	}{
		{model.PaymentStatusPending, &stats.PendingOrders},
		{model.PaymentStatusPartial, &stats.PartialOrders},
		{model.PaymentStatusPaid, &stats.PaidOrders},
	}
	for _, sc := range statusCounts {
		err := r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE payment_status = $1`,
			string(sc.status),
		).Scan(sc.dst)
		if err != nil {
			return nil, fmt.Errorf("count %s orders: %w", sc.status, err)
		}
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`,
		dayStart, dayEnd,
	).Scan(&stats.TodayOrders)
	if err != nil {
		return nil, fmt.Errorf("count today orders: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders`,
	).Scan(&stats.TotalRevenueCents)
	if err != nil {
		return nil, fmt.Errorf("sum total revenue: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status = $1`,
		string(model.PaymentStatusPaid),
	).Scan(&stats.PaidRevenueCents)
	if err != nil {
		return nil, fmt.Errorf("sum paid revenue: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(remaining_amount), 0) FROM orders WHERE payment_status IN ($1, $2)`,
		string(model.PaymentStatusPending), string(model.PaymentStatusPartial),
	).Scan(&stats.PendingRevenueCents)
	if err != nil {
		return nil, fmt.Errorf("sum pending revenue: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders
		 WHERE payment_status = $1 AND created_at >= $2`,
		string(model.PaymentStatusPaid), monthStart,
	).Scan(&stats.MonthlyRevenueCents)
	if err != nil {
		return nil, fmt.Errorf("sum monthly revenue: %w", err)
	}

	return &stats, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.Phone, &o.Size, &o.TotalCents, &o.AdvanceCents,
		&o.RemainingCents, &status, &o.OrderDate, &o.DeliveryDate, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentStatus = model.PaymentStatus(status)
	return &o, nil
}
