package handlers

import (
	"net/http"
	"time"

	"mercadito-api/models"
	"mercadito-api/services"

	"github.com/gin-gonic/gin"
)

func (a *API) CreateOrder(c *gin.Context) {
	var input struct {
		Productos      []models.OrderItem `json:"productos"`
		MetodoPago     string             `json:"metodo_pago"`
		PuntoEncuentro string             `json:"punto_encuentro"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}

	// Prices always come from the catalog; precio_unitario in the body is ignored.
	items := make([]models.CartItem, 0, len(input.Productos))
	for _, p := range input.Productos {
		items = append(items, models.CartItem{ProductoID: p.ProductoID, Cantidad: p.Cantidad})
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	order, err := a.Orders.PlaceOrder(ctx, identity(c).ID, services.OrderInput{
		Items:          items,
		MetodoPago:     input.MetodoPago,
		PuntoEncuentro: input.PuntoEncuentro,
	})
	if err != nil {
		a.fail(c, err, "", "Error al crear la orden")
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (a *API) UserOrders(c *gin.Context) {
	a.listOrders(c, identity(c).ID)
}

func (a *API) AllOrders(c *gin.Context) {
	a.listOrders(c, "")
}

func (a *API) listOrders(c *gin.Context, userID string) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	orders, err := a.Stores.Orders.ListByUser(ctx, userID)
	if err != nil {
		a.fail(c, err, "", "Error al obtener órdenes")
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ownedOrder loads an order belonging to the caller, or any order for admins.
func (a *API) ownedOrder(c *gin.Context) (*models.Order, bool) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	order, err := a.Stores.Orders.FindByID(ctx, c.Param("id"))
	if err != nil {
		a.fail(c, err, "Orden no encontrada", "Error al obtener la orden")
		return nil, false
	}
	if !identity(c).Owns(order.UsuarioID) {
		a.fail(c, services.ErrForbidden, "", "")
		return nil, false
	}
	return order, true
}

func (a *API) GetOrder(c *gin.Context) {
	order, ok := a.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder records every changed field in the order history. Buyers may
// only cancel; any other state change is reserved to admins.
func (a *API) UpdateOrder(c *gin.Context) {
	var input struct {
		Estado         *models.OrderStatus `json:"estado"`
		MetodoPago     *string             `json:"metodo_pago"`
		PuntoEncuentro *string             `json:"punto_encuentro"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos: " + err.Error()})
		return
	}

	order, ok := a.ownedOrder(c)
	if !ok {
		return
	}

	var history []models.OrderHistory
	now := time.Now().UTC()

	if input.Estado != nil && *input.Estado != order.Estado {
		if !input.Estado.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Estado inválido"})
			return
		}
		if *input.Estado != models.OrderCancelled && !identity(c).IsAdmin() {
			a.fail(c, services.ErrForbidden, "", "")
			return
		}
		if order.Estado == models.OrderPaid && !identity(c).IsAdmin() {
			c.JSON(http.StatusConflict, gin.H{"message": "No se puede modificar una orden pagada"})
			return
		}
		history = append(history, models.OrderHistory{
			Date:     now,
			Field:    "estado",
			OldValue: order.Estado,
			NewValue: *input.Estado,
		})
		order.Estado = *input.Estado
	}

	if input.MetodoPago != nil && *input.MetodoPago != order.MetodoPago {
		history = append(history, models.OrderHistory{
			Date:     now,
			Field:    "metodo_pago",
			OldValue: order.MetodoPago,
			NewValue: *input.MetodoPago,
		})
		order.MetodoPago = *input.MetodoPago
	}

	if input.PuntoEncuentro != nil && *input.PuntoEncuentro != order.PuntoEncuentro {
		history = append(history, models.OrderHistory{
			Date:     now,
			Field:    "punto_encuentro",
			OldValue: order.PuntoEncuentro,
			NewValue: *input.PuntoEncuentro,
		})
		order.PuntoEncuentro = *input.PuntoEncuentro
	}

	if len(history) == 0 {
		c.JSON(http.StatusOK, order) // No changes
		return
	}
	order.Historial = append(order.Historial, history...)

	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Orders.Save(ctx, order); err != nil {
		a.fail(c, err, "Orden no encontrada", "Error al actualizar la orden")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *API) DeleteOrder(c *gin.Context) {
	order, ok := a.ownedOrder(c)
	if !ok {
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Orders.Delete(ctx, order.ID); err != nil {
		a.fail(c, err, "Orden no encontrada", "Error al eliminar la orden")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Orden eliminada correctamente"})
}
