package main // Entry point package

import (
	"context" // Context for the expiry sweeper
	"log"     // Logging library
	"time"    // Ticker intervals and the checkout window

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticketing/internal/config"                  // Internal config loader
	"github.com/iliyamo/event-ticketing/internal/database"                // MySQL connection helper
	"github.com/iliyamo/event-ticketing/internal/handler"                 // HTTP handlers
	"github.com/iliyamo/event-ticketing/internal/middleware"              // Rate limiting and caching
	"github.com/iliyamo/event-ticketing/internal/monitoring"              // Prometheus metrics and reconciliation alerts
	"github.com/iliyamo/event-ticketing/internal/payment"                 // Paystack client
	"github.com/iliyamo/event-ticketing/internal/purchase"                // Purchase orchestrator
	"github.com/iliyamo/event-ticketing/internal/queue"                   // Ticket email consumer
	"github.com/iliyamo/event-ticketing/internal/repository"              // Data access layer
	"github.com/iliyamo/event-ticketing/internal/router"                  // Route registration
	queue_publisher "github.com/iliyamo/event-ticketing/internal/service" // Broker publisher + notifier
	"github.com/iliyamo/event-ticketing/internal/ticket"                  // Credential issuer
)

func main() {
	_ = godotenv.Load()  // Load .env when present; real env wins
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // Redis backs attempts, rate limiting and caching

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	inventory := repository.NewInventoryRepo(db)
	attendees := repository.NewAttendeeRepo(db)
	credentials := repository.NewCredentialRepo(db)

	window := time.Duration(cfg.CheckoutWindowMin) * time.Minute
	// Attempts live in Redis twice as long as the checkout window so
	// status pages can still show EXPIRED after the sweeper ran.
	attempts := repository.NewAttemptStore(rdb, 2*window)

	gateway := payment.NewClient(cfg.PaystackSecretKey, "")
	issuer := ticket.NewIssuer(credentials)
	notifier := &queue_publisher.TicketNotifier{Events: events, Inventory: inventory}

	orch := purchase.New(
		inventory, gateway, attempts, attendees, issuer, notifier, monitoring.Alerter{},
		cfg.Currency, cfg.FrontendBaseURL+"/purchase/callback", window,
	)

	// Background sweeper: expire attempts that never saw a webhook.
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := orch.ExpireStale(ctx); err != nil {
				log.Printf("expire sweep: %v", err)
			}
			cancel()
		}
	}()

	// Background consumer: emails issued tickets and appends the
	// issuance log. Runs its own reconnect loop.
	go func() {
		sender := queue.SMTPSender{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort,
			User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.SMTPFrom,
		}
		if err := queue.StartTicketConsumer(sender); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// Redis-backed token bucket and response cache apply to everything
	// registered after them. The webhook route tolerates both: the
	// gateway retries on 429 and POST responses are never cached.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := &handler.PublicHandler{Events: events, Inventory: inventory}
	organizerH := handler.NewOrganizerHandler(events, inventory, attendees)
	checkoutH := handler.NewCheckoutHandler(orch, users)
	ticketH := handler.NewTicketHandler(users, attendees, issuer)
	webhookH := handler.NewWebhookHandler(gateway, orch)

	router.RegisterRoutes(e, webhookH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH)
	router.RegisterOrganizer(e, organizerH, cfg.JWTSecret)
	router.RegisterCheckout(e, checkoutH, ticketH, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
