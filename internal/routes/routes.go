package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/config"
	"github.com/example/boldbrew/internal/handlers"
	"github.com/example/boldbrew/internal/middleware"
	"github.com/example/boldbrew/internal/services"
)

// Register wires up all HTTP routes and returns the shipping handler so
// main can warm the carrier token at boot.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) *handlers.ShippingHandler {
	telegramService := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
	razorpayService := services.NewRazorpayService(cfg.Razorpay)
	orderService := services.NewOrderService(db)
	reconciliationService := services.NewReconciliationService(orderService)
	shiprocketService := services.NewShiprocketService(db, cfg.Shiprocket)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db)
	couponHandler := handlers.NewCouponHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	paymentHandler := handlers.NewPaymentHandler(cfg, razorpayService, orderService, telegramService)
	orderHandler := handlers.NewOrderHandler(db, orderService, reconciliationService)
	shippingHandler := handlers.NewShippingHandler(db, cfg, shiprocketService, telegramService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Public catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)

	// Coupon validation is public so the cart can preview discounts.
	api.Get("/coupons/:code/validate", couponHandler.ValidateCoupon)

	// Checkout routes serve guests and signed-in customers alike.
	payments := api.Group("/payments", middleware.OptionalAuthMiddleware(cfg))
	payments.Post("/order", paymentHandler.CreateOrder)
	payments.Post("/preferences", paymentHandler.CheckoutPreferences)
	payments.Post("/verify", paymentHandler.VerifyPayment)
	payments.Post("/unverified-checkout", paymentHandler.UnverifiedCheckout)

	api.Post("/orders/confirmation", orderHandler.Confirmation)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/orders", orderHandler.ListMyOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Get("/profile", authHandler.Me)
	protected.Put("/profile", authHandler.UpdateProfile)

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart", cartHandler.UpsertCartItem)
	protected.Delete("/cart", cartHandler.ClearCart)

	protected.Get("/wishlist", cartHandler.GetWishlist)
	protected.Post("/wishlist", cartHandler.AddToWishlist)
	protected.Delete("/wishlist/:productId", cartHandler.RemoveFromWishlist)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())

	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Get("/coupons", couponHandler.ListCoupons)
	admin.Post("/coupons", couponHandler.CreateCoupon)
	admin.Put("/coupons/:id", couponHandler.UpdateCoupon)
	admin.Delete("/coupons/:id", couponHandler.DeleteCoupon)

	admin.Get("/orders", orderHandler.ListAll)
	admin.Patch("/orders/:id/status", orderHandler.UpdateStatus)

	admin.Post("/shipping/orders", shippingHandler.CreateShipment)
	admin.Get("/shipping/pickup-addresses", shippingHandler.ListPickupAddresses)
	admin.Get("/shipping/rates", shippingHandler.GetRates)
	admin.Post("/shipping/awb", shippingHandler.AssignAWB)

	return shippingHandler
}
