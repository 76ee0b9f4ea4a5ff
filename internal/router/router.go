package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/civictrack/road-registry/internal/config"
	"github.com/civictrack/road-registry/internal/handler"    // import the handlers that implement business logic
	"github.com/civictrack/road-registry/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/civictrack/road-registry/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, which
// load balancers and monitoring systems use to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated session operations (register, login,
// refresh) live under /v1/auth; endpoints that act on the caller's identity
// (profile, logout, logout-all) sit behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, users middleware.UserLoader) {
	// Operations that establish or exchange a session do not require an
	// existing access token.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh issues a new access token; the refresh token is not rotated
	// and stays valid until expiry or revocation.
	g.POST("/refresh", a.Refresh)

	// Endpoints below act on the authenticated user and therefore require a
	// valid access token.
	auth := e.Group("/v1/auth")
	auth.Use(middleware.JWTAuth(jwtSecret, users))
	auth.GET("/me", a.Me)
	// Logout invalidates the refresh token from the JSON body.  Within the
	// session it always reports success so it cannot be used to probe which
	// tokens exist.
	auth.POST("/logout", a.Logout)
	// Logout-all revokes every active refresh token of the caller, for
	// example after a suspected credential leak.
	auth.POST("/logout-all", a.LogoutAll)
}

// RegisterPublic registers the unauthenticated browse endpoints: road details
// with aggregated feedback, the feedback listings, and a builder's portfolio.
// These are the hottest anonymous routes, so they sit behind the Redis token
// bucket and the response cache.  Both middlewares degrade to no-ops when
// Redis is unavailable.
func RegisterPublic(e *echo.Echo, r *handler.RoadHandler, b *handler.BuilderHandler, rdb *redis.Client) {
	g := e.Group("/v1",
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.ResponseCache(config.LoadCacheConfig(), rdb))

	g.GET("/roads/:id", r.GetRoad)
	g.GET("/roads/:id/ratings", r.ListRoadRatings)
	g.GET("/roads/:id/reviews", r.ListRoadReviews)
	g.GET("/builder/:id/roads", b.ListBuilderRoads)
}

// RegisterUser registers the citizen feedback endpoints.  Any authenticated
// user may rate or review a road; identity comes from the access token, never
// from the request body.
func RegisterUser(e *echo.Echo, r *handler.RoadHandler, jwtSecret string, users middleware.UserLoader) {
	g := e.Group("/v1/user")
	g.Use(middleware.JWTAuth(jwtSecret, users))
	g.POST("/roads/rate", r.RateRoad)
	// Reviews arrive as multipart/form-data so a media file can ride along.
	g.POST("/roads/review", r.ReviewRoad)
}

// RegisterEmployee registers the government-employee endpoints.  Road
// registration is manager-only; the inspector listing is open to both
// managers and inspectors.
func RegisterEmployee(e *echo.Echo, h *handler.EmployeeHandler, jwtSecret string, users middleware.UserLoader) {
	g := e.Group("/v1/employee")
	g.Use(middleware.JWTAuth(jwtSecret, users))
	g.Use(middleware.RequireRole(model.UserTypeManager, model.UserTypeInspector))

	g.POST("/roads", h.CreateRoad, middleware.RequireRole(model.UserTypeManager))
	g.GET("/inspector/roads", h.InspectorRoads)
	// Account verification unblocks login for a registered user.
	g.POST("/users/:id/verify", h.VerifyUser, middleware.RequireRole(model.UserTypeManager))
}

// RegisterBuilder registers the builder's road update endpoint.  The listing
// of a builder's roads is public and registered in RegisterPublic.
func RegisterBuilder(e *echo.Echo, h *handler.BuilderHandler, jwtSecret string, users middleware.UserLoader) {
	g := e.Group("/v1/builder")
	g.Use(middleware.JWTAuth(jwtSecret, users))
	g.Use(middleware.RequireRole(model.UserTypeBuilder))

	g.PATCH("/roads/:id", h.UpdateRoad)
}
