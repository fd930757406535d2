// Package memory is an in-process implementation of the store contracts.
// Records are copied on the way in and out so callers never share state
// with the store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercadito-api/models"
	"mercadito-api/store"
)

type collection[T any] struct {
	mu      sync.RWMutex
	docs    map[string]T
	order   []string
	SaveErr error
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{docs: make(map[string]T)}
}

func (c *collection[T]) get(id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &doc, nil
}

func (c *collection[T]) put(id string, doc T, mustExist bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SaveErr != nil {
		return c.SaveErr
	}
	_, exists := c.docs[id]
	if mustExist && !exists {
		return store.ErrNotFound
	}
	if !mustExist && exists {
		return store.ErrDuplicate
	}
	if !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
	return nil
}

func (c *collection[T]) del(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// all returns documents in insertion order.
func (c *collection[T]) all(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, id := range c.order {
		doc := c.docs[id]
		if keep == nil || keep(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (c *collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

type Users struct{ *collection[models.User] }

func (s Users) FindByID(_ context.Context, id string) (*models.User, error) { return s.get(id) }

func (s Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	found := s.all(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return &found[0], nil
}

func (s Users) List(_ context.Context) ([]models.User, error) { return s.all(nil), nil }

func (s Users) Create(ctx context.Context, u *models.User) error {
	if _, err := s.FindByEmail(ctx, u.Email); err == nil {
		return store.ErrDuplicate
	}
	return s.put(u.ID, *u, false)
}

func (s Users) Save(_ context.Context, u *models.User) error { return s.put(u.ID, *u, true) }
func (s Users) Delete(_ context.Context, id string) error    { return s.del(id) }

type Products struct{ *collection[models.Product] }

func (s Products) FindByID(_ context.Context, id string) (*models.Product, error) {
	return s.get(id)
}

func (s Products) List(_ context.Context, f store.ProductFilter) ([]models.Product, error) {
	q := strings.ToLower(f.Query)
	return s.all(func(p models.Product) bool {
		if f.Categoria != "" && !strings.EqualFold(p.Categoria, f.Categoria) {
			return false
		}
		if f.Reportado != nil && p.Reportado != *f.Reportado {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Titulo), q) &&
			!strings.Contains(strings.ToLower(p.Descripcion), q) {
			return false
		}
		return true
	}), nil
}

func (s Products) Create(_ context.Context, p *models.Product) error { return s.put(p.ID, *p, false) }
func (s Products) Save(_ context.Context, p *models.Product) error   { return s.put(p.ID, *p, true) }
func (s Products) Delete(_ context.Context, id string) error         { return s.del(id) }

type Carts struct{ *collection[models.Cart] }

func (s Carts) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	found := s.all(func(c models.Cart) bool { return c.UsuarioID == userID })
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	cart := found[0]
	cart.Productos = append([]models.CartItem(nil), cart.Productos...)
	return &cart, nil
}

func (s Carts) Save(_ context.Context, c *models.Cart) error {
	doc := *c
	doc.Productos = append([]models.CartItem(nil), c.Productos...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if _, ok := s.docs[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.docs[c.ID] = doc
	return nil
}

type Orders struct{ *collection[models.Order] }

func (s Orders) FindByID(_ context.Context, id string) (*models.Order, error) { return s.get(id) }

func (s Orders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	out := s.all(func(o models.Order) bool { return userID == "" || o.UsuarioID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s Orders) Create(_ context.Context, o *models.Order) error { return s.put(o.ID, *o, false) }
func (s Orders) Save(_ context.Context, o *models.Order) error   { return s.put(o.ID, *o, true) }
func (s Orders) Delete(_ context.Context, id string) error       { return s.del(id) }

type Payments struct{ *collection[models.Payment] }

func (s Payments) FindByID(_ context.Context, id string) (*models.Payment, error) {
	return s.get(id)
}

func (s Payments) ListByUser(_ context.Context, userID string) ([]models.Payment, error) {
	out := s.all(func(p models.Payment) bool { return p.UsuarioID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s Payments) Create(_ context.Context, p *models.Payment) error { return s.put(p.ID, *p, false) }
func (s Payments) Save(_ context.Context, p *models.Payment) error   { return s.put(p.ID, *p, true) }
func (s Payments) Delete(_ context.Context, id string) error         { return s.del(id) }

func (s Payments) Complete(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	current, ok := s.docs[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Estado == models.PaymentCompleted {
		return store.ErrConflict
	}
	s.docs[p.ID] = *p
	return nil
}

// Tx runs the function directly; the memory store has no rollback.
type Tx struct{}

func (Tx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Store struct {
	UserStore    Users
	ProductStore Products
	CartStore    Carts
	OrderStore   Orders
	PaymentStore Payments
}

func New() *Store {
	return &Store{
		UserStore:    Users{newCollection[models.User]()},
		ProductStore: Products{newCollection[models.Product]()},
		CartStore:    Carts{newCollection[models.Cart]()},
		OrderStore:   Orders{newCollection[models.Order]()},
		PaymentStore: Payments{newCollection[models.Payment]()},
	}
}

func (s *Store) Stores() store.Stores {
	return store.Stores{
		Users:    s.UserStore,
		Products: s.ProductStore,
		Carts:    s.CartStore,
		Orders:   s.OrderStore,
		Payments: s.PaymentStore,
		Tx:       Tx{},
	}
}
