package services

import (
	"context"
	"testing"
	"time"

	"mercadito-api/models"
	"mercadito-api/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderFixture(t *testing.T) (*OrderService, *memory.Store) {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	for _, p := range []models.Product{
		{ID: "p1", Titulo: "Yerba", Precio: 0.1, UsuarioID: "v1"},
		{ID: "p2", Titulo: "Termo", Precio: 0.2, UsuarioID: "v2"},
	} {
		p := p
		require.NoError(t, mem.ProductStore.Create(ctx, &p))
	}
	svc := NewOrderService(mem.Stores())
	svc.Now = func() time.Time { return fixedNow }
	return svc, mem
}

func TestCartTotalUsesDecimalArithmetic(t *testing.T) {
	lines := []models.CartLine{
		{Producto: &models.Product{Precio: 0.1}, Cantidad: 3},
		{Producto: &models.Product{Precio: 0.2}, Cantidad: 1},
		{Producto: nil, Cantidad: 4},
	}
	assert.Equal(t, 0.5, CartTotal(lines))
	assert.Equal(t, 0.0, CartTotal(nil))
}

func TestPlaceOrder(t *testing.T) {
	svc, mem := newOrderFixture(t)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, "u1", OrderInput{
		Items:      []models.CartItem{{ProductoID: "p1", Cantidad: 2}, {ProductoID: "p2", Cantidad: 1}},
		MetodoPago: "tarjeta",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Estado)
	assert.Equal(t, []string{"p1", "p2"}, order.ProductosID)
	assert.Equal(t, 0.4, order.Total)
	assert.Equal(t, fixedNow, order.CreatedAt)

	_, err = mem.OrderStore.FindByID(ctx, order.ID)
	require.NoError(t, err)
}

func TestPlaceOrderRejectsBadItems(t *testing.T) {
	svc, _ := newOrderFixture(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, "u1", OrderInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.PlaceOrder(ctx, "u1", OrderInput{Items: []models.CartItem{{ProductoID: "nope", Cantidad: 1}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.PlaceOrder(ctx, "u1", OrderInput{Items: []models.CartItem{{ProductoID: "p1", Cantidad: 0}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckoutCart(t *testing.T) {
	svc, mem := newOrderFixture(t)
	ctx := context.Background()

	_, err := svc.CheckoutCart(ctx, "u1", "tarjeta", "")
	assert.ErrorIs(t, err, ErrInvalidInput, "no cart yet")

	require.NoError(t, mem.CartStore.Save(ctx, &models.Cart{
		ID: "c1", UsuarioID: "u1",
		Productos: []models.CartItem{{ProductoID: "p1", Cantidad: 1}, {ProductoID: "borrado", Cantidad: 5}},
	}))

	order, err := svc.CheckoutCart(ctx, "u1", "paypal", "Plaza central")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, order.ProductosID)
	assert.Equal(t, 0.1, order.Total)
	assert.Equal(t, "Plaza central", order.PuntoEncuentro)

	cart, err := mem.CartStore.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Productos)

	_, err = svc.CheckoutCart(ctx, "u1", "paypal", "")
	assert.ErrorIs(t, err, ErrInvalidInput, "empty cart")
}
