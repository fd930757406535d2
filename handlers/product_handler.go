package handlers

import (
	"net/http"
	"strings"
	"time"

	"mercadito-api/models"
	"mercadito-api/services"
	"mercadito-api/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (a *API) listProducts(c *gin.Context, filter store.ProductFilter) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	products, err := a.Stores.Products.List(ctx, filter)
	if err != nil {
		a.fail(c, err, "", "Error al obtener productos")
		return
	}
	c.JSON(http.StatusOK, products)
}

// ListProducts accepts optional q and categoria query filters.
func (a *API) ListProducts(c *gin.Context) {
	a.listProducts(c, store.ProductFilter{
		Query:     strings.TrimSpace(c.Query("q")),
		Categoria: strings.TrimSpace(c.Query("categoria")),
	})
}

func (a *API) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Debe indicar un término de búsqueda"})
		return
	}
	a.listProducts(c, store.ProductFilter{Query: q})
}

func (a *API) ProductsByCategory(c *gin.Context) {
	a.listProducts(c, store.ProductFilter{Categoria: c.Param("categoria")})
}

func (a *API) GetProduct(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	product, err := a.Stores.Products.FindByID(ctx, c.Param("id"))
	if err != nil {
		a.fail(c, err, "Producto no encontrado", "Error al obtener producto")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *API) CreateProduct(c *gin.Context) {
	var input struct {
		Titulo      string  `json:"titulo"`
		Descripcion string  `json:"descripcion"`
		Categoria   string  `json:"categoria"`
		Precio      float64 `json:"precio"`
		Stock       int     `json:"stock"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}
	if strings.TrimSpace(input.Titulo) == "" || input.Precio <= 0 || input.Stock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Título y precio válido son requeridos"})
		return
	}

	product := &models.Product{
		ID:          store.NewID(),
		UsuarioID:   identity(c).ID,
		Titulo:      strings.TrimSpace(input.Titulo),
		Descripcion: input.Descripcion,
		Categoria:   strings.TrimSpace(input.Categoria),
		Precio:      input.Precio,
		Stock:       input.Stock,
		CreatedAt:   time.Now().UTC(),
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Products.Create(ctx, product); err != nil {
		a.fail(c, err, "", "Error al crear producto")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// ownedProduct loads a product the caller may change.
func (a *API) ownedProduct(c *gin.Context) (*models.Product, bool) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	product, err := a.Stores.Products.FindByID(ctx, c.Param("id"))
	if err != nil {
		a.fail(c, err, "Producto no encontrado", "Error al obtener producto")
		return nil, false
	}
	if !identity(c).Owns(product.UsuarioID) {
		a.fail(c, services.ErrForbidden, "", "")
		return nil, false
	}
	return product, true
}

func (a *API) UpdateProduct(c *gin.Context) {
	var input struct {
		Titulo      *string  `json:"titulo"`
		Descripcion *string  `json:"descripcion"`
		Categoria   *string  `json:"categoria"`
		Precio      *float64 `json:"precio"`
		Stock       *int     `json:"stock"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos inválidos"})
		return
	}

	product, ok := a.ownedProduct(c)
	if !ok {
		return
	}

	changed := false
	if input.Titulo != nil && strings.TrimSpace(*input.Titulo) != "" {
		product.Titulo = strings.TrimSpace(*input.Titulo)
		changed = true
	}
	if input.Descripcion != nil {
		product.Descripcion = *input.Descripcion
		changed = true
	}
	if input.Categoria != nil {
		product.Categoria = strings.TrimSpace(*input.Categoria)
		changed = true
	}
	if input.Precio != nil {
		if *input.Precio <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Precio inválido"})
			return
		}
		product.Precio = *input.Precio
		changed = true
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Stock inválido"})
			return
		}
		product.Stock = *input.Stock
		changed = true
	}

	if !changed {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No se enviaron datos para actualizar"})
		return
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Products.Save(ctx, product); err != nil {
		a.fail(c, err, "Producto no encontrado", "Error al actualizar producto")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *API) DeleteProduct(c *gin.Context) {
	product, ok := a.ownedProduct(c)
	if !ok {
		return
	}
	a.deleteProduct(c, product.ID)
}

func (a *API) deleteProduct(c *gin.Context, id string) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	if err := a.Stores.Products.Delete(ctx, id); err != nil {
		a.fail(c, err, "Producto no encontrado", "Error al eliminar producto")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado correctamente"})
}

// ReportProduct flags a product for admin review.
func (a *API) ReportProduct(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	product, err := a.Stores.Products.FindByID(ctx, c.Param("id"))
	if err != nil {
		a.fail(c, err, "Producto no encontrado", "Error al reportar producto")
		return
	}
	if !product.Reportado {
		product.Reportado = true
		if err := a.Stores.Products.Save(ctx, product); err != nil {
			a.fail(c, err, "Producto no encontrado", "Error al reportar producto")
			return
		}
		a.Log.WithFields(logrus.Fields{
			"producto_id": product.ID,
			"usuario_id":  identity(c).ID,
		}).Info("Producto reportado")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Producto reportado"})
}
