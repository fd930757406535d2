package handlers

import (
	"mercadito-api/middleware"

	"github.com/gin-gonic/gin"
)

func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(a.Log))
	router.Use(middleware.CORS(a.Config.AllowedOrigins))
	if a.Metrics != nil {
		router.Use(a.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	}

	router.GET("/", a.Home)
	router.GET("/health", a.Health)

	auth := middleware.AuthMiddleware(a.Tokens)
	admin := middleware.RequireAdmin()

	router.POST("/register", a.Register)
	router.POST("/login", a.Login)
	router.POST("/auth/logout", auth, a.Logout)
	router.GET("/perfil", auth, a.Profile)
	router.PATCH("/auth/perfil", auth, a.UpdateProfile)
	router.DELETE("/auth/eliminar-cuenta", auth, a.DeleteAccount)
	router.POST("/admin/create-user", a.AdminCreateUser)

	products := router.Group("/productos")
	{
		products.GET("", a.ListProducts)
		products.GET("/busqueda", a.SearchProducts)
		products.GET("/categoria/:categoria", a.ProductsByCategory)
		products.GET("/:id", a.GetProduct)
		products.POST("", auth, a.CreateProduct)
		products.PATCH("/:id", auth, a.UpdateProduct)
		products.DELETE("/:id", auth, a.DeleteProduct)
		products.POST("/:id/reportar", auth, a.ReportProduct)
	}

	router.GET("/carrito", auth, a.ViewCart)
	router.POST("/carrito/agregar", auth, a.AddToCart)
	router.DELETE("/carrito/eliminar/:id", auth, a.RemoveFromCart)
	router.POST("/comprar", auth, a.Purchase)
	router.GET("/compras/historial", auth, a.PurchaseHistory)

	orders := router.Group("/ordenes", auth)
	{
		orders.POST("", a.CreateOrder)
		orders.GET("/usuario", a.UserOrders)
		orders.GET("/admin", admin, a.AllOrders)
		orders.GET("/:id", a.GetOrder)
		orders.PATCH("/:id", a.UpdateOrder)
		orders.DELETE("/:id", a.DeleteOrder)
	}

	payments := router.Group("/pagos", auth)
	{
		payments.POST("/checkout", a.Checkout)
		payments.GET("/confirmar/:id", a.ConfirmPayment)
		payments.GET("/historial", a.PaymentHistory)
		payments.GET("/:id", a.GetPayment)
		payments.DELETE("/:id", a.DeletePayment)
	}

	adminGroup := router.Group("/admin", auth, admin)
	{
		adminGroup.GET("/usuarios", a.ListUsers)
		adminGroup.DELETE("/usuarios/:id", a.DeleteUser)
		adminGroup.GET("/productos-reportados", a.ReportedProducts)
		adminGroup.DELETE("/productos/:id", a.AdminDeleteProduct)
	}

	return router
}
