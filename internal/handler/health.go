// Package handler contains the HTTP handlers for every route group:
// authentication, permit requests, admin review, guard scanning, offices,
// accounts and the audit log.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
