package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	pkgdb "github.com/Skotchmaster/petstore/pkg/db"
	middleware "github.com/Skotchmaster/petstore/pkg/middleware/auth"
)

type Deps struct {
	Auth         *AuthHTTP
	Users        *UserHTTP
	Catalog      *CatalogHTTP
	Cart         *CartHTTP
	Orders       *OrderHTTP
	Payments     *PaymentHTTP
	Pets         *PetHTTP
	Appointments *AppointmentHTTP
	Professional *ProfessionalHTTP
	Reviews      *ReviewHTTP

	JWTSecret     []byte
	Refresher     middleware.Refresher
	SecureCookies bool
	DB            *gorm.DB
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", readiness(d.DB))

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher, d.SecureCookies)
	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh-token", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/forgot-password", d.Auth.ForgotPassword)
	auth.POST("/reset-password", d.Auth.ResetPassword)
	auth.GET("/verify-email/:token", d.Auth.VerifyEmail)
	auth.POST("/resend-verification", d.Auth.ResendVerification, authMW.RequireAuth)

	users := api.Group("/users", authMW.RequireAuth)
	users.GET("/me", d.Users.Me)
	users.PATCH("/update-profile", d.Users.UpdateProfile)
	users.PATCH("/change-password", d.Auth.ChangePassword)
	users.DELETE("/delete-account", d.Users.DeleteAccount)

	products := api.Group("/products")
	products.GET("", d.Catalog.GetProducts, authMW.OptionalAuth)
	products.GET("/:id", d.Catalog.GetProduct, authMW.OptionalAuth)
	products.POST("", d.Catalog.CreateProduct, authMW.RequireAdmin)
	products.PATCH("/:id", d.Catalog.PatchProduct, authMW.RequireAdmin)
	products.DELETE("/:id", d.Catalog.DeleteProduct, authMW.RequireAdmin)
	products.POST("/:id/images", d.Catalog.UploadImages, authMW.RequireAdmin)
	products.DELETE("/:id/images/:imageId", d.Catalog.DeleteImage, authMW.RequireAdmin)

	search := api.Group("/search")
	search.GET("", d.Catalog.Search)
	search.GET("/suggestions", d.Catalog.Suggestions)

	categories := api.Group("/categories")
	categories.GET("", d.Catalog.GetCategories, authMW.OptionalAuth)
	categories.GET("/:id", d.Catalog.GetCategory)
	categories.POST("", d.Catalog.CreateCategory, authMW.RequireAdmin)
	categories.PATCH("/:id", d.Catalog.PatchCategory, authMW.RequireAdmin)
	categories.DELETE("/:id", d.Catalog.DeleteCategory, authMW.RequireAdmin)

	cart := api.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart)
	cart.PATCH("/:productId", d.Cart.UpdateItem)
	cart.DELETE("/:productId", d.Cart.RemoveItem)
	cart.DELETE("", d.Cart.ClearCart)
	cart.POST("/discount", d.Cart.ApplyDiscount)

	orders := api.Group("/orders")
	orders.POST("", d.Orders.CreateOrder, authMW.RequireAuth)
	orders.GET("/my-orders", d.Orders.MyOrders, authMW.RequireAuth)
	orders.GET("/:id", d.Orders.GetOrder, authMW.RequireAuth)
	orders.PATCH("/:id/cancel", d.Orders.CancelOrder, authMW.RequireAuth)
	orders.GET("", d.Orders.GetOrders, authMW.RequireAdmin)
	orders.PATCH("/:id/status", d.Orders.UpdateStatus, authMW.RequireAdmin)
	orders.PATCH("/:id/payment", d.Orders.UpdatePayment, authMW.RequireAdmin)

	payments := api.Group("/payments")
	payments.POST("/webhook/:provider", d.Payments.Webhook)
	payments.POST("/orders/:orderId/initialize", d.Payments.Initialize, authMW.RequireAuth)
	payments.POST("/orders/:orderId/confirm", d.Payments.Confirm, authMW.RequireAuth)
	payments.POST("/orders/:orderId/refund", d.Payments.Refund, authMW.RequireAdmin)

	pets := api.Group("/pets", authMW.RequireAuth)
	pets.POST("", d.Pets.CreatePet)
	pets.GET("", d.Pets.GetPets)
	pets.GET("/:id", d.Pets.GetPet)
	pets.PATCH("/:id", d.Pets.PatchPet)
	pets.DELETE("/:id", d.Pets.DeletePet)

	appts := api.Group("/appointments")
	appts.GET("/professional/:professionalId", d.Appointments.BookedSlots)
	appts.POST("", d.Appointments.CreateAppointment, authMW.RequireAuth)
	appts.GET("/my-appointments", d.Appointments.MyAppointments, authMW.RequireAuth)
	appts.GET("/professional-appointments", d.Appointments.ProfessionalAppointments, authMW.RequireRoles(models.ProfessionalRoles...))
	appts.GET("/:id", d.Appointments.GetAppointment, authMW.RequireAuth)
	appts.PATCH("/:id/status", d.Appointments.UpdateStatus, authMW.RequireAuth)
	appts.DELETE("/:id", d.Appointments.CancelAppointment, authMW.RequireAuth)

	pros := api.Group("/professionals")
	pros.GET("", d.Professional.GetProfessionals)
	pros.GET("/available", d.Professional.GetAvailable)
	pros.GET("/role/:role", d.Professional.GetByRole)
	pros.GET("/:id", d.Professional.GetProfessional)
	pros.POST("", d.Professional.CreateProfessional, authMW.RequireAdmin)
	pros.PATCH("/:id/profile", d.Professional.UpdateProfile, authMW.RequireAuth)
	pros.PATCH("/:id/availability", d.Professional.UpdateAvailability, authMW.RequireAuth)
	pros.PATCH("/:id/status", d.Professional.ToggleStatus, authMW.RequireAuth)
	pros.PATCH("/:id/rating", d.Professional.UpdateRating, authMW.RequireAdmin)
	pros.POST("/:id/image", d.Professional.UploadImage, authMW.RequireAuth)

	reviews := api.Group("/reviews")
	reviews.GET("/product/:productId", d.Reviews.ProductReviews)
	reviews.POST("", d.Reviews.CreateReview, authMW.RequireAuth)
	reviews.PATCH("/:id", d.Reviews.PatchReview, authMW.RequireAuth)
	reviews.DELETE("/:id", d.Reviews.DeleteReview, authMW.RequireAuth)
}

func readiness(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := pkgdb.Ping(c.Request().Context(), db); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "database unavailable"})
		}
		return c.NoContent(http.StatusOK)
	}
}

