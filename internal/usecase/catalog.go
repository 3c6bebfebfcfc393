package usecase

import (
	"context"
	"strings"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/shopspring/decimal"
)

// Catalog is the plain product CRUD the order core relies on.
type Catalog struct {
	d Deps
}

func NewCatalog(d Deps) *Catalog {
	return &Catalog{d: d}
}

type NewProduct struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

func (in NewProduct) normalize() (NewProduct, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return in, &domain.ValidationError{Field: "name", Reason: "is required"}
	case len(name) > 120:
		return in, &domain.ValidationError{Field: "name", Reason: "must be at most 120 characters"}
	case in.Price.IsNegative():
		return in, &domain.ValidationError{Field: "price", Reason: "must not be negative"}
	case in.Stock < 0:
		return in, &domain.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return NewProduct{Name: name, Price: in.Price.Round(2), Stock: in.Stock}, nil
}

func (c *Catalog) Create(ctx context.Context, in NewProduct) (*domain.Product, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	now := c.d.now()
	p := &domain.Product{
		Name:      in.Name,
		Price:     in.Price,
		Stock:     in.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.d.Products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces name, price and stock. The row is locked so the new stock
// level cannot interleave with a reservation. Orders already placed keep the
// price they were created with.
func (c *Catalog) Update(ctx context.Context, id int64, in NewProduct) (*domain.Product, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var out *domain.Product
	err = c.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := c.d.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Name, p.Price, p.Stock = in.Name, in.Price, in.Stock
		p.UpdatedAt = c.d.now()
		if err := c.d.Products.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.FromCtx(ctx).InfoContext(ctx, "product updated", "product_id", id, "stock", out.Stock)
	return out, nil
}

// Delete removes the product. Existing orders are untouched.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.d.Products.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromCtx(ctx).InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return c.d.Products.Get(ctx, id)
}

// List filters by a case-insensitive name fragment when one is given.
func (c *Catalog) List(ctx context.Context, name string, page PageRequest) (Page[domain.Product], error) {
	return c.d.Products.List(ctx, strings.TrimSpace(name), page)
}
