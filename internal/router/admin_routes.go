package router

import (
	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// registerAdmin wires the review and administration endpoints.  Permit
// review is open to office admins (scoped to their offices in the
// handler); account control, office mutations, office-change decisions and
// the audit log belong to the global admin.
func registerAdmin(e *echo.Echo, d Deps) {
	review := e.Group("/v1/admin")
	review.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	review.Use(middleware.RequireRole(model.RoleAdminOffice, model.RoleAdminGlobal))
	review.Use(middleware.LoadIdentity(d.Users))

	review.GET("/permits", d.Admin.List)
	review.POST("/permits/:id/decision", d.Admin.Decide)
	review.GET("/readings", d.Guard.ReadingList)

	global := e.Group("/v1/admin")
	global.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	global.Use(middleware.RequireRole(model.RoleAdminGlobal))
	global.Use(middleware.LoadIdentity(d.Users))

	global.GET("/accounts", d.Acct.List)
	global.PATCH("/accounts/:id", d.Acct.Update)
	global.DELETE("/accounts/:id", d.Acct.Delete)

	global.POST("/offices", d.Office.Create)
	global.PUT("/offices/:id", d.Office.Update)
	global.DELETE("/offices/:id", d.Office.Delete)

	global.GET("/office-changes", d.Change.Pending)
	global.POST("/office-changes/:id/decision", d.Change.Decide)

	global.GET("/audit", d.Audit.List)
	global.POST("/photos/:employee_number", d.Photo.Upload)
}
