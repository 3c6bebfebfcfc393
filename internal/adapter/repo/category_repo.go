package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
)

type CategoryRepo struct{ s *Store }

func NewCategoryRepo(s *Store) *CategoryRepo { return &CategoryRepo{s: s} }

const categoryColumns = `id, name, created_at, updated_at`

func (r *CategoryRepo) Get(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := scanCategory(r.s.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// NameTaken reports whether another category already uses name, ignoring case.
func (r *CategoryRepo) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var n int
	err := r.s.queryRow(ctx, `SELECT COUNT(*) FROM categories WHERE LOWER(name) = LOWER(?) AND id <> ?`,
		name, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

func (r *CategoryRepo) Save(ctx context.Context, c *domain.Category) error {
	if c.ID == 0 {
		id, err := r.s.insert(ctx, `INSERT INTO categories (name, created_at, updated_at) VALUES (?, ?, ?)`,
			c.Name, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		c.ID = id
		return nil
	}

	res, err := r.s.exec(ctx, `UPDATE categories SET name = ?, updated_at = ? WHERE id = ?`, c.Name, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "category", ID: c.ID}
	}
	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

// List returns every category ordered by name, ignoring case.
func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.s.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY LOWER(name), id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCategory(sc scanner) (*domain.Category, error) {
	var c domain.Category
	if err := sc.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

var _ usecase.CategoryRepo = (*CategoryRepo)(nil)
