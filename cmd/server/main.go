package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/config"
	"medshop-backend/internal/controller"
	"medshop-backend/internal/middleware"
	"medshop-backend/internal/rabbit"
	"medshop-backend/internal/ratelimit"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/service"
	"medshop-backend/internal/sms"
	"medshop-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("MongoDB no responde:", err)
	}
	db := client.Database(cfg.MongoDBName)
	repository.EnsureIndexes(ctx, db)

	// Redis para la ventana de envíos de OTP
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Println("⚠ Redis no responde (rate limit degradado):", err)
	}

	// Repositorios
	users := repository.NewMongoUserRepository(db)
	otps := repository.NewMongoOTPRepository(db)
	products := repository.NewMongoProductRepository(db)
	carts := repository.NewMongoCartRepository(db)
	orders := repository.NewMongoOrderRepository(db)
	prescriptions := repository.NewMongoPrescriptionRepository(db)
	returns := repository.NewMongoReturnRepository(db)

	// Colaboradores externos
	var sender sms.Sender
	if cfg.SMSProvider == "twilio" {
		sender = sms.NewTwilioSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom)
	} else {
		sender = sms.NewConsoleSender()
	}
	files := storage.NewLocalDisk(cfg.UploadDir, cfg.BaseURL)

	// RabbitMQ es opcional: sin RABBIT_URL los eventos se omiten
	var events *rabbit.Publisher
	if cfg.RabbitURL != "" {
		events, err = rabbit.Connect(cfg.RabbitURL)
		if err != nil {
			log.Println("⚠ RabbitMQ no disponible, eventos deshabilitados:", err)
			events = nil
		}
	}

	// Servicios
	limiter := ratelimit.New(rdb, "otp_send", cfg.OTPMaxSendsHour, time.Hour)
	otpService := service.NewOtpService(otps, limiter, cfg.OTPTTL, cfg.OTPMaxSendsHour, time.Hour)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authService := service.NewAuthService(users, otpService, tokenService, sender)
	productService := service.NewProductService(products)
	cartService := service.NewCartService(carts, products)
	orderService := service.NewOrderService(orders, products, carts, prescriptions, files, events)
	prescriptionService := service.NewPrescriptionService(prescriptions, files, events)
	returnService := service.NewReturnService(returns, orders, products, events)

	// Handlers
	authCtl := controller.NewAuthController(authService, cfg.FrontendURL, int(cfg.RefreshTTL.Seconds()))
	productCtl := controller.NewProductController(productService)
	cartCtl := controller.NewCartController(cartService)
	orderCtl := controller.NewOrderController(orderService)
	prescriptionCtl := controller.NewPrescriptionController(prescriptionService)
	returnCtl := controller.NewReturnController(returnService)

	// Router
	r := gin.Default()
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
	})

	// Rutas públicas
	r.POST("/auth/send-otp", authCtl.SendOtp)
	r.POST("/auth/verify-otp", authCtl.VerifyOtp)
	r.POST("/auth/admin/send-otp", authCtl.SendAdminOtp)
	r.POST("/auth/admin/verify-otp", authCtl.VerifyAdminOtp)
	r.POST("/auth/send-reset-otp", authCtl.SendResetOtp)
	r.POST("/auth/reset-password", authCtl.ResetPassword)
	r.POST("/auth/refresh-token", authCtl.RefreshToken)
	r.GET("/api/products", productCtl.List)
	r.GET("/api/products/:id", productCtl.Get)

	// Rutas protegidas (requieren token)
	auth := r.Group("/", middleware.Authenticate(tokenService, users))

	auth.GET("/auth/me", authCtl.Me)
	auth.PUT("/auth/me", authCtl.UpdateMe)

	auth.GET("/api/cart", cartCtl.Get)
	auth.POST("/api/cart/items", cartCtl.AddItem)
	auth.PUT("/api/cart/items/:productId", cartCtl.UpdateItem)
	auth.DELETE("/api/cart/items/:productId", cartCtl.RemoveItem)

	auth.POST("/api/orders", orderCtl.Place)
	auth.GET("/api/orders/mine", orderCtl.Mine)
	auth.GET("/api/orders/:id", orderCtl.Get)
	auth.POST("/api/orders/:id/cancel", orderCtl.Cancel)

	auth.POST("/api/prescriptions", prescriptionCtl.Upload)
	auth.GET("/api/prescriptions/mine", prescriptionCtl.Mine)
	auth.GET("/api/prescriptions/:id", prescriptionCtl.Get)

	auth.POST("/api/returns", returnCtl.Create)
	auth.GET("/api/returns/mine", returnCtl.Mine)
	auth.POST("/api/returns/:id/cancel", returnCtl.Cancel)

	// Rutas admin
	admin := auth.Group("/", middleware.RequireAdmin())
	admin.POST("/api/products/admin", productCtl.Create)
	admin.PUT("/api/products/admin/:id", productCtl.Update)
	admin.GET("/api/orders/admin", orderCtl.AdminList)
	admin.PUT("/api/orders/:id/status", orderCtl.UpdateStatus)
	admin.GET("/api/prescriptions/admin", prescriptionCtl.AdminList)
	admin.PUT("/api/prescriptions/admin/:id/status", prescriptionCtl.UpdateStatus)
	admin.GET("/api/returns/admin", returnCtl.AdminList)
	admin.PUT("/api/returns/admin/:id/status", returnCtl.UpdateStatus)

	// Ejecutar servidor
	log.Printf("MedShop backend ejecutándose en puerto %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
