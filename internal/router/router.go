package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/config"
	"github.com/iliyamo/inventory-admin/internal/handler"
	"github.com/iliyamo/inventory-admin/internal/middleware"
	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/service"
)

// Deps carries what the route groups need besides their handlers. Redis
// may be nil; rate limiting and caching then pass through.
type Deps struct {
	Gate               *service.Gate
	Redis              *redis.Client
	RateLimit          config.RateLimitConfig
	Cache              config.CacheConfig
	EnforcePermissions bool
	Log                logrus.FieldLogger
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account routes. Register and login are public
// and rate limited; everything else runs behind JWTAuth. Deactivation needs
// users:write when permissions are enforced.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, d Deps) {
	jwt := middleware.JWTAuth(d.Gate, d.Log)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/logout", a.Logout, jwt)

	v1 := e.Group("/v1", jwt)
	v1.GET("/me", a.Me)
	v1.PATCH("/users/me/password", a.ChangePassword)
	v1.GET("/users/:id", a.Get)
	if d.EnforcePermissions {
		v1.DELETE("/users/:id", a.Deactivate, middleware.RequirePermission(model.PermUsersWrite))
	} else {
		v1.DELETE("/users/:id", a.Deactivate)
	}
}

// RegisterRoles registers role management. Reads are cached in Redis and
// every successful mutation drops the affected entries.
func RegisterRoles(e *echo.Echo, r *handler.RoleHandler, d Deps) {
	g := e.Group("/v1/roles", middleware.JWTAuth(d.Gate, d.Log))

	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)
	g.GET("", r.List, cache)
	g.GET("/:id", r.Get, cache)

	mutate := []echo.MiddlewareFunc{}
	if d.EnforcePermissions {
		mutate = append(mutate, middleware.RequirePermission(model.PermRolesWrite))
	}
	// the list entry is always stale after a write
	mutate = append(mutate, middleware.InvalidateCache(d.Cache, d.Redis, "/v1/roles"))
	g.POST("", r.Create, mutate...)
	g.PATCH("/:id", r.Update, mutate...)
}
