package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// AuditHandler serves the admin audit-log browser and the per-user
// notification feed.
type AuditHandler struct {
	Audit *repository.AuditRepo
}

func NewAuditHandler(a *repository.AuditRepo) *AuditHandler {
	return &AuditHandler{Audit: a}
}

// List returns audit entries newest first, with optional action, time range
// and paging filters.
func (h *AuditHandler) List(c echo.Context) error {
	f := repository.AuditFilter{
		Action: strings.TrimSpace(c.QueryParam("action")),
		From:   queryTime(c, "from"),
		To:     queryTime(c, "to"),
		Limit:  int(queryUint(c, "limit")),
		Before: queryUint(c, "before"),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	entries, err := h.Audit.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// Notifications returns the authenticated user's notification feed.
func (h *AuditHandler) Notifications(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Audit.Notifications(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead flags one of the user's notifications as read.
func (h *AuditHandler) MarkNotificationRead(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Audit.MarkNotificationRead(ctx, ident.ID, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
