package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercadito-api/models"
	"mercadito-api/store"

	"github.com/shopspring/decimal"
)

type OrderService struct {
	orders   store.Orders
	products store.Products
	carts    store.Carts

	Now func() time.Time
}

func NewOrderService(s store.Stores) *OrderService {
	return &OrderService{
		orders:   s.Orders,
		products: s.Products,
		carts:    s.Carts,
		Now:      time.Now,
	}
}

type OrderInput struct {
	Items          []models.CartItem
	MetodoPago     string
	PuntoEncuentro string
}

// PlaceOrder prices every item from the product store and creates a
// pending order. An unknown product or a non-positive quantity is invalid
// input.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, in OrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("orden sin productos: %w", ErrInvalidInput)
	}
	lines := make([]models.CartLine, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Cantidad <= 0 {
			return nil, fmt.Errorf("cantidad inválida para %s: %w", item.ProductoID, ErrInvalidInput)
		}
		product, err := s.products.FindByID(ctx, item.ProductoID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("producto %s: %w", item.ProductoID, ErrInvalidInput)
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", item.ProductoID, err)
		}
		lines = append(lines, models.CartLine{Producto: product, Cantidad: item.Cantidad})
	}
	return s.create(ctx, userID, lines, in.MetodoPago, in.PuntoEncuentro)
}

// CartLines joins the cart items with their products. Items whose product
// no longer exists are left out.
func (s *OrderService) CartLines(ctx context.Context, cart *models.Cart) ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0, len(cart.Productos))
	for _, item := range cart.Productos {
		product, err := s.products.FindByID(ctx, item.ProductoID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", item.ProductoID, err)
		}
		lines = append(lines, models.CartLine{Producto: product, Cantidad: item.Cantidad})
	}
	return lines, nil
}

// CheckoutCart turns the user's cart into a pending order and empties it.
func (s *OrderService) CheckoutCart(ctx context.Context, userID, metodoPago, puntoEncuentro string) (*models.Order, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("carrito vacío: %w", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	lines, err := s.CartLines(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("carrito vacío: %w", ErrInvalidInput)
	}

	order, err := s.create(ctx, userID, lines, metodoPago, puntoEncuentro)
	if err != nil {
		return nil, err
	}

	cart.Productos = []models.CartItem{}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("empty cart: %w", err)
	}
	return order, nil
}

func (s *OrderService) create(ctx context.Context, userID string, lines []models.CartLine, metodoPago, puntoEncuentro string) (*models.Order, error) {
	order := &models.Order{
		ID:             store.NewID(),
		UsuarioID:      userID,
		ProductosID:    make([]string, 0, len(lines)),
		Detalle:        make([]models.OrderItem, 0, len(lines)),
		Total:          CartTotal(lines),
		MetodoPago:     metodoPago,
		PuntoEncuentro: puntoEncuentro,
		Estado:         models.OrderPending,
		CreatedAt:      s.Now().UTC(),
	}
	for _, line := range lines {
		order.ProductosID = append(order.ProductosID, line.Producto.ID)
		order.Detalle = append(order.Detalle, models.OrderItem{
			ProductoID:     line.Producto.ID,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.Producto.Precio,
		})
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// CartTotal sums price × quantity in decimal and rounds to cents.
func CartTotal(lines []models.CartLine) float64 {
	total := decimal.Zero
	for _, line := range lines {
		if line.Producto == nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(line.Producto.Precio).Mul(decimal.NewFromInt(int64(line.Cantidad))))
	}
	return total.Round(2).InexactFloat64()
}
