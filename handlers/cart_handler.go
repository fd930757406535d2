package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mercadito-api/models"
	"mercadito-api/services"
	"mercadito-api/store"

	"github.com/gin-gonic/gin"
)

// ViewCart creates an empty cart on first access.
func (a *API) ViewCart(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	userID := identity(c).ID
	cart, err := a.Stores.Carts.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		cart = &models.Cart{ID: store.NewID(), UsuarioID: userID, Productos: []models.CartItem{}}
		err = a.Stores.Carts.Save(ctx, cart)
	}
	if err != nil {
		a.fail(c, err, "", "Error al obtener carrito")
		return
	}

	lines, err := a.Orders.CartLines(ctx, cart)
	if err != nil {
		a.fail(c, err, "", "Error al obtener carrito")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"productos": lines,
		"total":     services.CartTotal(lines),
	})
}

func (a *API) AddToCart(c *gin.Context) {
	var input struct {
		ProductoID string `json:"producto_id"`
		Cantidad   int    `json:"cantidad"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}
	if input.Cantidad == 0 {
		input.Cantidad = 1
	}
	if strings.TrimSpace(input.ProductoID) == "" || input.Cantidad < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	if _, err := a.Stores.Products.FindByID(ctx, input.ProductoID); err != nil {
		a.fail(c, err, "Producto no encontrado", "Error al agregar al carrito")
		return
	}

	userID := identity(c).ID
	cart, err := a.Stores.Carts.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		cart, err = &models.Cart{ID: store.NewID(), UsuarioID: userID}, nil
	}
	if err != nil {
		a.fail(c, err, "", "Error al agregar al carrito")
		return
	}

	found := false
	for i := range cart.Productos {
		if cart.Productos[i].ProductoID == input.ProductoID {
			cart.Productos[i].Cantidad += input.Cantidad
			found = true
			break
		}
	}
	if !found {
		cart.Productos = append(cart.Productos, models.CartItem{ProductoID: input.ProductoID, Cantidad: input.Cantidad})
	}

	if err := a.Stores.Carts.Save(ctx, cart); err != nil {
		a.fail(c, err, "", "Error al agregar al carrito")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Producto agregado al carrito", "carrito": cart})
}

func (a *API) RemoveFromCart(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	cart, err := a.Stores.Carts.FindByUser(ctx, identity(c).ID)
	if err != nil {
		a.fail(c, err, "Carrito no encontrado", "Error al eliminar del carrito")
		return
	}

	productID := c.Param("id")
	kept := cart.Productos[:0]
	for _, item := range cart.Productos {
		if item.ProductoID != productID {
			kept = append(kept, item)
		}
	}
	cart.Productos = kept

	if err := a.Stores.Carts.Save(ctx, cart); err != nil {
		a.fail(c, err, "Carrito no encontrado", "Error al eliminar del carrito")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado del carrito"})
}

// Purchase turns the cart into a pending order.
func (a *API) Purchase(c *gin.Context) {
	var input struct {
		MetodoPago     string `json:"metodo_pago"`
		PuntoEncuentro string `json:"punto_encuentro"`
	}
	// The body is optional.
	_ = c.ShouldBindJSON(&input)

	ctx, cancel := a.ctx(c)
	defer cancel()

	order, err := a.Orders.CheckoutCart(ctx, identity(c).ID, input.MetodoPago, input.PuntoEncuentro)
	if errors.Is(err, services.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Carrito vacío"})
		return
	}
	if err != nil {
		a.fail(c, err, "", "Error al procesar la compra")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Compra realizada con éxito", "orden": order})
}

func (a *API) PurchaseHistory(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	orders, err := a.Stores.Orders.ListByUser(ctx, identity(c).ID)
	if err != nil {
		a.fail(c, err, "", "Error al obtener historial")
		return
	}
	c.JSON(http.StatusOK, orders)
}
