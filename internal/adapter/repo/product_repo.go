package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
)

type ProductRepo struct{ s *Store }

func NewProductRepo(s *Store) *ProductRepo { return &ProductRepo{s: s} }

const productColumns = `id, name, price, stock, created_at, updated_at`

func (r *ProductRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate locks the product row for the rest of the ctx transaction.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(ctx, id, r.s.d.forUpdate)
}

func (r *ProductRepo) get(ctx context.Context, id int64, lock string) (*domain.Product, error) {
	row := r.s.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`+lock, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// Save inserts a new product (ID 0) or updates an existing one.
func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	if p.ID == 0 {
		id, err := r.s.insert(ctx, `
INSERT INTO products (name, price, stock, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`, p.Name, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		p.ID = id
		return nil
	}

	res, err := r.s.exec(ctx, `
UPDATE products
SET name = ?, price = ?, stock = ?, updated_at = ?
WHERE id = ?`, p.Name, p.Price, p.Stock, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "product", ID: p.ID}
	}
	return nil
}

// Delete removes the product. Order lines keep their snapshot of it.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.exec(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

func (r *ProductRepo) List(ctx context.Context, nameFilter string, page usecase.PageRequest) (usecase.Page[domain.Product], error) {
	where, args := "", []any{}
	if nameFilter != "" {
		where = ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(nameFilter)+"%")
	}

	out := usecase.Page[domain.Product]{Number: page.Number, Size: page.Size, Content: []domain.Product{}}
	if err := r.s.queryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&out.TotalElements); err != nil {
		return out, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.s.query(ctx, `SELECT `+productColumns+` FROM products`+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return out, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return out, err
		}
		out.Content = append(out.Content, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner) (*domain.Product, error) {
	var p domain.Product
	if err := sc.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ usecase.ProductRepo = (*ProductRepo)(nil)
