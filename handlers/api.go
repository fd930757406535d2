package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mercadito-api/config"
	"mercadito-api/metrics"
	"mercadito-api/middleware"
	"mercadito-api/models"
	"mercadito-api/services"
	"mercadito-api/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// API holds everything the HTTP handlers need. DB and Metrics are optional.
type API struct {
	Stores   store.Stores
	Payments *services.PaymentService
	Orders   *services.OrderService
	Tokens   *middleware.Tokens
	Config   config.Config
	Log      logrus.FieldLogger
	DB       Pinger
	Metrics  *metrics.Metrics
}

func (a *API) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// identity is only called behind AuthMiddleware.
func identity(c *gin.Context) models.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

// fail maps service and store errors to a status code. Anything unexpected
// is logged and answered with serverMsg.
func (a *API) fail(c *gin.Context, err error, notFoundMsg, serverMsg string) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMsg})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "No tiene permisos sobre este recurso"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
	case errors.Is(err, services.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, gin.H{"message": "El pago ya fue confirmado"})
	case errors.Is(err, services.ErrOrderNotPending):
		c.JSON(http.StatusConflict, gin.H{"message": "La orden no está pendiente de pago"})
	default:
		a.Log.WithError(err).WithField("ruta", c.FullPath()).Error(serverMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"message": serverMsg})
	}
}
