package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id TEXT PRIMARY KEY,
	position INT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	price BIGINT NOT NULL,
	stock INT NOT NULL CHECK (stock >= 0),
	reorder_threshold INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const itemColumns = `id, name, description, category, price, stock, reorder_threshold`

// PostgresInventory serializes decrements per item with row locks.
type PostgresInventory struct {
	pool DBPool
}

func NewPostgresInventory(pool DBPool) *PostgresInventory {
	return &PostgresInventory{pool: pool}
}

func (r *PostgresInventory) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Seed upserts items; catalog order follows the slice order.
func (r *PostgresInventory) Seed(ctx context.Context, items []domain.InventoryItem) error {
	for i, item := range items {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO inventory_items(id, position, name, description, category, price, stock, reorder_threshold)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				position=EXCLUDED.position, name=EXCLUDED.name, description=EXCLUDED.description,
				category=EXCLUDED.category, price=EXCLUDED.price, stock=EXCLUDED.stock,
				reorder_threshold=EXCLUDED.reorder_threshold, updated_at=now()
		`, item.ID, i, item.Name, item.Description, item.Category, item.Price, item.Stock, item.ReorderThreshold)
		if err != nil {
			return fmt.Errorf("seed %s: %w", item.ID, err)
		}
	}
	return nil
}

func (r *PostgresInventory) Get(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1`, itemID)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InventoryItem{}, fmt.Errorf("%s: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return item, nil
}

func (r *PostgresInventory) List(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *PostgresInventory) Decrement(ctx context.Context, itemID string, quantity int) (domain.InventoryItem, error) {
	items, err := r.DecrementAll(ctx, []domain.CartLine{{ItemID: itemID, Quantity: quantity}})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return items[0], nil
}

// DecrementAll locks every row (in id order, so concurrent checkouts cannot
// deadlock), checks all of them, and only then updates.
func (r *PostgresInventory) DecrementAll(ctx context.Context, lines []domain.CartLine) ([]domain.InventoryItem, error) {
	lines = mergeLines(lines)
	locking := make([]domain.CartLine, len(lines))
	copy(locking, lines)
	sort.Slice(locking, func(i, j int) bool { return locking[i].ItemID < locking[j].ItemID })

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked := make(map[string]domain.InventoryItem, len(locking))
	for _, line := range locking {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("decrement %s by %d: %w", line.ItemID, line.Quantity, domain.ErrInvalidInput)
		}
		row := tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1 FOR UPDATE`, line.ItemID)
		item, err := scanItem(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", line.ItemID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", line.ItemID, err)
		}
		if item.Stock < line.Quantity {
			return nil, fmt.Errorf("%s: %w", line.ItemID, domain.ErrInsufficientStock)
		}
		locked[item.ID] = item
	}

	for _, line := range locking {
		_, err := tx.Exec(ctx, `
			UPDATE inventory_items
			SET stock = stock - $2, updated_at=now()
			WHERE id=$1
		`, line.ItemID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement %s: %w", line.ItemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	updated := make([]domain.InventoryItem, 0, len(lines))
	for _, line := range lines {
		item := locked[line.ItemID]
		item.Stock -= line.Quantity
		updated = append(updated, item)
	}
	return updated, nil
}

func scanItem(row pgx.Row) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.Price, &item.Stock, &item.ReorderThreshold)
	return item, err
}
