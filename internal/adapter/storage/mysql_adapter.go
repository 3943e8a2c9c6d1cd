package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

const orderRefPrefix = "SO-"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sales_orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		provisional_id VARCHAR(64) NOT NULL UNIQUE,
		customer_name VARCHAR(255) NOT NULL,
		customer_email VARCHAR(255) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		total BIGINT NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_order_lines (
		order_id BIGINT NOT NULL,
		line_no INT NOT NULL,
		item_id VARCHAR(64) NOT NULL,
		item_name VARCHAR(255) NOT NULL,
		unit_price BIGINT NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (order_id, line_no),
		FOREIGN KEY (order_id) REFERENCES sales_orders(id)
	)`,
}

// MySQLOrderStore is the order backend: one transaction per order, the
// auto-increment id becomes the SO-<n> reference.
type MySQLOrderStore struct {
	db *sql.DB
}

func NewMySQLOrderStore(db *sql.DB) *MySQLOrderStore {
	return &MySQLOrderStore{db: db}
}

func (m *MySQLOrderStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLOrderStore) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	if len(order.Lines) == 0 {
		return "", fmt.Errorf("create order: %w", domain.ErrEmptyCart)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sales_orders (provisional_id, customer_name, customer_email, payment_method, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.Customer.Name, order.Customer.Email, order.PaymentMethod,
		order.Total, order.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("order id: %w", err)
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sales_order_lines (order_id, line_no, item_id, item_name, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i+1, line.ItemID, line.Name, line.UnitPrice, line.Quantity,
		)
		if err != nil {
			return "", fmt.Errorf("insert order line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit order: %w", err)
	}
	return fmt.Sprintf("%s%d", orderRefPrefix, id), nil
}

// GetOrder loads an order by its backend reference.
func (m *MySQLOrderStore) GetOrder(ctx context.Context, ref string) (domain.Order, error) {
	var id int64
	if _, err := fmt.Sscanf(ref, orderRefPrefix+"%d", &id); err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", ref, domain.ErrNotFound)
	}

	order := domain.Order{ID: ref}
	var method string
	err := m.db.QueryRowContext(ctx, `
		SELECT customer_name, customer_email, payment_method, total, created_at
		FROM sales_orders WHERE id = ?`, id,
	).Scan(&order.Customer.Name, &order.Customer.Email, &method, &order.Total, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", ref, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order: %w", err)
	}
	order.PaymentMethod = domain.PaymentMethod(method)

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, item_name, unit_price, quantity
		FROM sales_order_lines WHERE order_id = ? ORDER BY line_no`, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Name, &line.UnitPrice, &line.Quantity); err != nil {
			return domain.Order{}, fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}
