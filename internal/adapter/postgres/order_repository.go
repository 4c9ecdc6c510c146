package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

const orderColumns = `id::text, status, customer_name, customer_email, customer_phone,
		       total_amount::float8, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

type orderRepository struct {
	db      DB
	channel string
}

// NewOrderRepository returns the Postgres order store. Every write also
// raises a NOTIFY on channel unless channel is empty.
func NewOrderRepository(db DB, channel string) interfaces.OrderStore {
	return &orderRepository{db: db, channel: channel}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (id, status, customer_name, customer_email, customer_phone,
		                    total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, string(order.Status), order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.TotalAmount, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range order.Items {
		mods, err := json.Marshal(nonNilModifiers(item.Modifiers))
		if err != nil {
			return fmt.Errorf("failed to encode modifiers: %w", err)
		}
		itemQuery := `
			INSERT INTO order_items (order_id, position, name, unit_price, quantity, modifiers)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, itemQuery, order.ID, i, item.Name, item.UnitPrice, item.Quantity, mods); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := r.notify(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := loadItems(ctx, r.db, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	if filter.OrderID != "" {
		if _, err := uuid.Parse(filter.OrderID); err != nil {
			return []*domain.Order{}, nil
		}
	}

	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	rows.Close()

	if err := loadItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus is a plain last-write-wins update; transitions are validated
// by the caller.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, updatedAt time.Time) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + orderColumns
	order, err := scanOrder(tx.QueryRow(ctx, query, id, string(status), updatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err := loadItems(ctx, tx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	if err := r.notify(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return order, nil
}

// notify is delivered by Postgres only when the transaction commits.
func (r *orderRepository) notify(ctx context.Context, tx Tx, order *domain.Order) error {
	if r.channel == "" {
		return nil
	}
	payload, err := encodePayload(order)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, r.channel, payload); err != nil {
		return fmt.Errorf("failed to notify %s: %w", r.channel, err)
	}
	return nil
}

func buildListQuery(filter interfaces.OrderFilter) (string, []any) {
	var (
		where []string
		match []string
		args  []any
	)

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		match = append(match, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CompletedSince != nil {
		args = append(args, *filter.CompletedSince)
		match = append(match, fmt.Sprintf("(status = 'COMPLETED' AND updated_at > $%d)", len(args)))
	}
	if len(match) > 0 {
		where = append(where, "("+strings.Join(match, " OR ")+")")
	}
	if filter.OrderID != "" {
		args = append(args, filter.OrderID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	return query, args
}

func scanOrder(row Row) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(
		&order.ID, &status, &order.CustomerName, &order.CustomerEmail, &order.CustomerPhone,
		&order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = domain.Status(status)
	order.Items = []domain.OrderItem{}
	return &order, nil
}

func loadItems(ctx context.Context, q querier, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		ids[i] = o.ID
	}

	query := `
		SELECT order_id::text, name, unit_price::float8, quantity, modifiers
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
			mods    []byte
		)
		if err := rows.Scan(&orderID, &item.Name, &item.UnitPrice, &item.Quantity, &mods); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if len(mods) > 0 {
			if err := json.Unmarshal(mods, &item.Modifiers); err != nil {
				return fmt.Errorf("failed to decode modifiers: %w", err)
			}
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func nonNilModifiers(m []domain.ItemModifier) []domain.ItemModifier {
	if m == nil {
		return []domain.ItemModifier{}
	}
	return m
}
