package handlers

import (
	"net/http"

	"mercadito-api/store"

	"github.com/gin-gonic/gin"
)

func (a *API) ListUsers(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	users, err := a.Stores.Users.List(ctx)
	if err != nil {
		a.fail(c, err, "", "Error al obtener usuarios")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *API) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == identity(c).ID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No puede eliminar su propia cuenta desde el panel"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Users.Delete(ctx, id); err != nil {
		a.fail(c, err, "Usuario no encontrado", "Error al eliminar usuario")
		return
	}
	a.Log.WithField("usuario_id", id).Info("Usuario eliminado por administrador")
	c.JSON(http.StatusOK, gin.H{"message": "Usuario eliminado correctamente"})
}

func (a *API) ReportedProducts(c *gin.Context) {
	reported := true
	a.listProducts(c, store.ProductFilter{Reportado: &reported})
}

func (a *API) AdminDeleteProduct(c *gin.Context) {
	a.deleteProduct(c, c.Param("id"))
}
