package router

import (
	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
)

// registerUser wires the requester-facing endpoints: permit submission and
// tracking, the office catalog, office-change requests and the
// notification feed.  Any authenticated role may use them.
func registerUser(e *echo.Echo, d Deps) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	g.Use(middleware.LoadIdentity(d.Users))

	g.POST("/permits", d.Permit.Submit)
	g.GET("/permits", d.Permit.Mine)
	g.GET("/permits/:id", d.Permit.Track)

	g.GET("/offices", d.Office.List)

	g.POST("/office-changes", d.Change.Submit)
	g.GET("/office-changes", d.Change.Mine)

	g.GET("/notifications", d.Audit.Notifications)
	g.POST("/notifications/:id/read", d.Audit.MarkNotificationRead)
}
