package usecase

import (
	"context"
	"strings"

	domain "github.com/Markko1982/order-manager/internal/entity"
)

type Categories struct {
	d Deps
}

func NewCategories(d Deps) *Categories {
	return &Categories{d: d}
}

func categoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", &domain.ValidationError{Field: "name", Reason: "is required"}
	case len(name) > 100:
		return "", &domain.ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	return name, nil
}

func (uc *Categories) Create(ctx context.Context, rawName string) (*domain.Category, error) {
	return uc.save(ctx, 0, rawName)
}

func (uc *Categories) Rename(ctx context.Context, id int64, rawName string) (*domain.Category, error) {
	return uc.save(ctx, id, rawName)
}

// save checks the name is free and writes in one transaction; the unique
// index still backs the check up.
func (uc *Categories) save(ctx context.Context, id int64, rawName string) (*domain.Category, error) {
	name, err := categoryName(rawName)
	if err != nil {
		return nil, err
	}

	var out *domain.Category
	err = uc.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		now := uc.d.now()
		c := &domain.Category{CreatedAt: now}
		if id != 0 {
			existing, err := uc.d.Categories.Get(ctx, id)
			if err != nil {
				return err
			}
			c = existing
		}
		taken, err := uc.d.Categories.NameTaken(ctx, name, id)
		if err != nil {
			return err
		}
		if taken {
			return &domain.ConflictError{Entity: "category", Field: "name", Value: name}
		}
		c.Name = name
		c.UpdatedAt = now
		if err := uc.d.Categories.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *Categories) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return uc.d.Categories.Get(ctx, id)
}

func (uc *Categories) List(ctx context.Context) ([]domain.Category, error) {
	return uc.d.Categories.List(ctx)
}

func (uc *Categories) Delete(ctx context.Context, id int64) error {
	return uc.d.Categories.Delete(ctx, id)
}
