// Package router wires HTTP routes to handlers and applies the
// authentication, role, rate limit and cache middleware per group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/VRCarlos21/QrSanfer/internal/config"
	"github.com/VRCarlos21/QrSanfer/internal/handler"
	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// Deps bundles everything the route registrars need.
type Deps struct {
	Cfg    config.Config
	RDB    *redis.Client
	Users  *repository.UserRepo
	Auth   *handler.AuthHandler
	Permit *handler.PermitHandler
	Admin  *handler.AdminPermitHandler
	Guard  *handler.VigilanteHandler
	Office *handler.OfficeHandler
	Change *handler.OfficeChangeHandler
	Acct   *handler.AccountHandler
	Audit  *handler.AuditHandler
	Photo  *handler.PhotoHandler
}

// Register wires every route group on the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	registerAuth(e, d)
	registerUser(e, d)
	registerGuard(e, d)
	registerAdmin(e, d)
}

// registerAuth wires the session endpoints.  Login and register sit behind
// the rate limiter to slow down credential stuffing.
func registerAuth(e *echo.Echo, d Deps) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.RDB)

	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, limiter)
	g.POST("/login", d.Auth.Login, limiter)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	me.Use(middleware.LoadIdentity(d.Users))
	me.GET("/me", d.Auth.Me)
}
