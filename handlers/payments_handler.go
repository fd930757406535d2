package handlers

import (
	"net/http"

	"mercadito-api/services"

	"github.com/gin-gonic/gin"
)

func (a *API) Checkout(c *gin.Context) {
	var input services.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	payment, err := a.Payments.Checkout(ctx, identity(c), input)
	if err != nil {
		a.fail(c, err, "Orden no encontrada", "Error al iniciar el pago")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Pago iniciado", "pago": payment})
}

// ConfirmPayment answers 200 once the payment is persisted, even when some
// notifications failed; the per-recipient outcome is in notificaciones.
func (a *API) ConfirmPayment(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	res, err := a.Payments.ConfirmPayment(ctx, identity(c), c.Param("id"))
	if err != nil {
		a.fail(c, err, "Pago no encontrado", "Error al confirmar pago")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Pago confirmado",
		"pago":           res.Pago,
		"notificaciones": res.Notificaciones,
	})
}

// PaymentHistory lists the caller's payments, newest first.
func (a *API) PaymentHistory(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	payments, err := a.Payments.History(ctx, identity(c))
	if err != nil {
		a.fail(c, err, "", "Error al obtener historial")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (a *API) GetPayment(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	payment, err := a.Payments.Get(ctx, identity(c), c.Param("id"))
	if err != nil {
		a.fail(c, err, "Pago no encontrado", "Error al obtener el pago")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (a *API) DeletePayment(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Payments.Delete(ctx, identity(c), c.Param("id")); err != nil {
		a.fail(c, err, "Pago no encontrado", "Error al eliminar el pago")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pago eliminado correctamente"})
}
