package usecase

import (
	"context"

	domain "github.com/Markko1982/order-manager/internal/entity"
)

// ProductRepo is the catalog accessor.
type ProductRepo interface {
	// GetForUpdate loads a product and, inside a transaction, locks its row
	// until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Save(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, nameFilter string, page PageRequest) (Page[domain.Product], error)
}

type CategoryRepo interface {
	Get(ctx context.Context, id int64) (*domain.Category, error)
	NameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	Save(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Category, error)
}

// OrderRepo persists the order aggregate. Save writes the order and its items
// as one unit.
type OrderRepo interface {
	Save(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	Find(ctx context.Context, filter StatusFilter, page PageRequest) (Page[domain.Order], error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// TxManager runs fn inside a single storage transaction. Repositories called
// with the ctx handed to fn take part in it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderCache holds committed orders. Writers call Set and Evict after
// commit; read-through loads go through Fill, which never replaces an
// existing entry or an eviction.
type OrderCache interface {
	Get(ctx context.Context, id int64) (*domain.Order, bool, error)
	Set(ctx context.Context, o *domain.Order) error
	Fill(ctx context.Context, o *domain.Order) error
	Evict(ctx context.Context, id int64) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type EventPublisher interface {
	PublishCreated(ctx context.Context, msg CreatedMsg) error
	PublishStatusChanged(ctx context.Context, msg StatusChangedMsg) error
}
