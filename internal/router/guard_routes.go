package router

import (
	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/config"
	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// registerGuard wires the vigilante endpoints.  Scans are rate limited;
// the equipment board is served through the response cache because it is
// polled continuously from the gate.  Photos are readable by guards and
// admins alike.
func registerGuard(e *echo.Echo, d Deps) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.RDB)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), d.RDB)

	g := e.Group("/v1/guard")
	g.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	g.Use(middleware.RequireRole(model.RoleVigilante, model.RoleAdminGlobal))
	g.Use(middleware.LoadIdentity(d.Users))

	g.POST("/scan", d.Guard.Scan, limiter)
	g.POST("/lookup", d.Guard.Lookup, limiter)
	g.GET("/board", d.Guard.Board, cache)
	g.GET("/readings", d.Guard.ReadingList)
	g.GET("/report", d.Guard.Report)

	p := e.Group("/fotos")
	p.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	p.GET("/:file", d.Photo.Get)
}
