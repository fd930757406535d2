package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) Home(c *gin.Context) {
	c.String(http.StatusOK, "api work")
}

func (a *API) Health(c *gin.Context) {
	if a.DB == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := a.ctx(c)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		a.Log.WithError(err).Warn("Base de datos no disponible")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degradado", "database": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
