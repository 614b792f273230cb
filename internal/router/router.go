package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-ticketing/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/event-ticketing/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance: the health check, the Prometheus
// metrics endpoint and the payment gateway webhook.  The webhook is
// deliberately outside every auth group; the HMAC signature on the
// raw body is its only authentication.
func RegisterRoutes(e *echo.Echo, wh *handler.WebhookHandler) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	// Expose Prometheus metrics for scraping.
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	// Payment gateway deliveries land here.
	e.POST("/webhook", wh.Handle)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh).  Each of
	// these handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Register a POST endpoint to log out.  The handler accepts either a
	// bearer access token (revokes all sessions) or a JSON body with a
	// `refresh_token` (revokes that session).
	g.POST("/logout", a.Logout)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.  Protected endpoints live under /v1.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Both roles may call the generic authenticated endpoints.  The
	// middleware rejects requests with missing or unknown roles.
	auth.Use(middleware.RequireRole("ORGANIZER", "ATTENDEE"))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)

	// Additionally map POST /v1/logout to the same handler so clients can
	// call either /v1/auth/logout or /v1/logout to terminate a session.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The provided PublicHandler exposes handlers that return
// sanitized data for published events and their ticket types.  These routes
// do not apply any JWT or role middleware and are intended for guest users.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
	// Expose the list of all published events.
	e.GET("/v1/events", p.ListPublishedEvents)
	// Event details with ticket types and remaining stock.
	e.GET("/v1/events/:id", p.GetPublicEvent)
}

// RegisterOrganizer registers event management endpoints.  Every route
// requires a valid access token with the ORGANIZER role.
func RegisterOrganizer(e *echo.Echo, h *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ORGANIZER"))
	// Create a new event (starts in DRAFT).
	g.POST("/events", h.CreateEvent)
	// Edit an owned event, including publishing and cancelling it.
	g.PATCH("/events/:id", h.UpdateEvent)
	// List the caller's own events regardless of status.
	g.GET("/my-events", h.ListMyEvents)
	// Add a ticket type with price and quantity to an owned event.
	g.POST("/events/:id/tickets", h.AddTicketType)
	// Roster of confirmed purchases for an owned event.
	g.GET("/events/:id/attendees", h.ListAttendees)
	// The same roster as a CSV download.
	g.GET("/events/:id/attendees.csv", h.ExportAttendeesCSV)
}

// RegisterCheckout registers the purchase flow for authenticated
// buyers: starting a checkout, polling its status and fetching issued
// tickets.  Both roles may purchase tickets.
func RegisterCheckout(e *echo.Echo, ch *handler.CheckoutHandler, th *handler.TicketHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ORGANIZER", "ATTENDEE"))
	// Open a hosted checkout session with the payment gateway.
	g.POST("/checkout", ch.Start)
	// Poll the state of a purchase attempt after the redirect.
	g.GET("/purchases/:reference", ch.Status)
	// List the caller's issued tickets.
	g.GET("/my-tickets", th.ListMine)
	// Render one ticket's QR credential as PNG.
	g.GET("/my-tickets/:id/qr.png", th.RenderQR)
}
