// Package store declares the persistence contracts used by handlers and
// services. Implementations live in database (MongoDB) and store/memory.
package store

import (
	"context"
	"errors"

	"mercadito-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
	ErrConflict  = errors.New("store: concurrent update")
)

// NewID returns a fresh document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

type Users interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
}

type ProductFilter struct {
	Query     string
	Categoria string
	Reportado *bool
}

type Products interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Save(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

type Carts interface {
	// FindByUser returns ErrNotFound when the user has never had a cart.
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, c *models.Cart) error
}

type Orders interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	// ListByUser returns orders newest first. An empty userID lists every order.
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	Create(ctx context.Context, o *models.Order) error
	Save(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id string) error
}

type Payments interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
	Create(ctx context.Context, p *models.Payment) error
	Save(ctx context.Context, p *models.Payment) error
	// Complete writes p only if the stored payment is not completed yet,
	// otherwise it returns ErrConflict.
	Complete(ctx context.Context, p *models.Payment) error
	Delete(ctx context.Context, id string) error
}

// Transactor runs fn so that the writes it performs through ctx commit or
// fail together, when the backend supports it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles every store the API needs.
type Stores struct {
	Users    Users
	Products Products
	Carts    Carts
	Orders   Orders
	Payments Payments
	Tx       Transactor
}
