package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
)

type OrderRepo struct{ s *Store }

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

const orderColumns = `id, order_number, status, total_amount, created_at, updated_at`

// Save writes the order and replaces its items. A zero ID inserts. The
// stored total must equal the sum of the item subtotals.
func (r *OrderRepo) Save(ctx context.Context, o *domain.Order) error {
	if sum := o.RecomputeTotal(); !o.Total.Equal(sum) {
		return fmt.Errorf("order %d: total %s does not match items %s", o.ID, o.Total.StringFixed(2), sum.StringFixed(2))
	}
	return r.s.WithinTx(ctx, func(ctx context.Context) error {
		if o.ID == 0 {
			id, err := r.s.insert(ctx, `
INSERT INTO orders (order_number, status, total_amount, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`, nullableString(o.OrderNumber), string(o.Status), o.Total, o.CreatedAt, o.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
			o.ID = id
			return r.insertItems(ctx, o)
		}

		res, err := r.s.exec(ctx, `
UPDATE orders
SET order_number = ?, status = ?, total_amount = ?, updated_at = ?
WHERE id = ?`, nullableString(o.OrderNumber), string(o.Status), o.Total, o.UpdatedAt, o.ID)
		if err != nil {
			return fmt.Errorf("update order %d: %w", o.ID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return &domain.NotFoundError{Entity: "order", ID: o.ID}
		}

		if _, err := r.s.exec(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
			return fmt.Errorf("clear items of order %d: %w", o.ID, err)
		}
		return r.insertItems(ctx, o)
	})
}

func (r *OrderRepo) insertItems(ctx context.Context, o *domain.Order) error {
	for i, it := range o.Items {
		_, err := r.s.exec(ctx, `
INSERT INTO order_items (order_id, line_no, product_id, product_name, quantity, unit_price)
VALUES (?, ?, ?, ?, ?, ?)`, o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
		if err != nil {
			return fmt.Errorf("insert item %d of order %d: %w", i, o.ID, err)
		}
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(ctx, id, "")
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(ctx, id, r.s.d.forUpdate)
}

func (r *OrderRepo) get(ctx context.Context, id int64, lock string) (*domain.Order, error) {
	o, err := scanOrder(r.s.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if err := r.loadItems(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// Find pages through orders by ascending id. The status filter goes into the
// WHERE clause of both the count and the page query.
func (r *OrderRepo) Find(ctx context.Context, filter usecase.StatusFilter, page usecase.PageRequest) (usecase.Page[domain.Order], error) {
	where, args := "", []any{}
	if st, ok := filter.Status(); ok {
		where = ` WHERE status = ?`
		args = append(args, string(st))
	}

	out := usecase.Page[domain.Order]{Number: page.Number, Size: page.Size, Content: []domain.Order{}}
	if err := r.s.queryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&out.TotalElements); err != nil {
		return out, fmt.Errorf("count orders: %w", err)
	}
	if out.TotalElements == 0 {
		return out, nil
	}

	orders, err := r.scanOrders(ctx, `SELECT `+orderColumns+` FROM orders`+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return out, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return out, err
	}
	for _, o := range orders {
		out.Content = append(out.Content, *o)
	}
	return out, nil
}

// scanOrders reads every row and closes the cursor before returning, so the
// caller may issue further queries on the same connection.
func (r *OrderRepo) scanOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepo) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]any, 0, len(orders))
	for _, o := range orders {
		o.Items = []domain.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.s.query(ctx, `
SELECT order_id, product_id, product_name, quantity, unit_price
FROM order_items
WHERE order_id IN (`+placeholders(len(ids))+`)
ORDER BY order_id, line_no`, ids...)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// Delete removes the order and its items. Stock is not returned.
func (r *OrderRepo) Delete(ctx context.Context, id int64) error {
	return r.s.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.s.exec(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
			return fmt.Errorf("delete items of order %d: %w", id, err)
		}
		res, err := r.s.exec(ctx, `DELETE FROM orders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete order %d: %w", id, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		return nil
	})
}

func (r *OrderRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := r.s.queryRow(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check order %d: %w", id, err)
	}
	return n > 0, nil
}

func scanOrder(sc scanner) (*domain.Order, error) {
	var (
		o      domain.Order
		number sql.NullString
		status string
	)
	if err := sc.Scan(&o.ID, &number, &status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.OrderNumber = number.String
	o.Status = domain.Status(status)
	return &o, nil
}

var _ usecase.OrderRepo = (*OrderRepo)(nil)
