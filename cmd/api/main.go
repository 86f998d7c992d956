package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tickethub/internal/cache"
	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/gateway"
	"tickethub/internal/middleware"
	"tickethub/internal/modules/auth"
	"tickethub/internal/modules/booking"
	"tickethub/internal/modules/event"
	"tickethub/internal/modules/inventory"
	"tickethub/internal/modules/payment"
	"tickethub/internal/modules/ticket"
	"tickethub/internal/notification"
	jwtsvc "tickethub/internal/pkg/jwt"
	"tickethub/internal/repository"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	classRepo := repository.NewTicketClassRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)
	locks := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PaymentLockTTL)
	notifier := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.NotificationTopic)
	defer notifier.Close()

	ledger := inventory.NewLedger(db)
	ticketService := ticket.NewService(db, ticketRepo, bookingRepo, classRepo)

	authService := auth.NewService(userRepo, j)
	eventService := event.NewService(eventRepo, classRepo)
	bookingService := booking.NewService(
		db,
		bookingRepo,
		eventRepo,
		classRepo,
		paymentRepo,
		ledger,
		ticketService,
		notifier,
		booking.DefaultPolicy(),
		cfg.Currency,
	)
	paymentService := payment.NewService(
		paymentRepo,
		bookingRepo,
		bookingService,
		gw,
		locks,
		cfg.WebhookSecret,
		"razorpay",
	)
	// refunds flow booking -> payment, confirmation payment -> booking
	bookingService.SetRefundProcessor(paymentService)

	authHandler := auth.NewHandler(authService)
	eventHandler := event.NewHandler(eventService)
	bookingHandler := booking.NewHandler(bookingService)
	paymentHandler := payment.NewHandler(paymentService)
	ticketHandler := ticket.NewHandler(ticketService)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.CORS())

	if cfg.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1)
		eventHandler.RegisterPublicRoutes(v1)

		// gateway callbacks authenticate via webhook signature, not JWT
		paymentHandler.RegisterWebhookRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			bookingHandler.RegisterRoutes(protected)
			paymentHandler.RegisterRoutes(protected)
			ticketHandler.RegisterRoutes(protected)

			organizer := protected.Group("/")
			organizer.Use(middleware.OrganizerOnly())
			{
				eventHandler.RegisterOrganizerRoutes(organizer)
				bookingHandler.RegisterStaffRoutes(organizer)
				ticketHandler.RegisterStaffRoutes(organizer)
			}

			admin := protected.Group("/")
			admin.Use(middleware.AdminOnly())
			{
				paymentHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("level=info msg=\"api listening\" port=%s env=%s", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("level=info msg=\"shutting down\"")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("level=error msg=\"shutdown failed\" err=%v", err)
	}
}
