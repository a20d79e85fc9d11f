package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// OfficeStore is the office catalog storage used by the handler.
// *repository.OfficeRepo satisfies it.
type OfficeStore interface {
	List(ctx context.Context) ([]model.Office, error)
	GetByID(ctx context.Context, id uint64) (*model.Office, error)
	Create(ctx context.Context, o *model.Office) error
	Update(ctx context.Context, id uint64, name, description string) error
	Delete(ctx context.Context, id uint64) error
}

// OfficeHandler serves office catalog endpoints.  Listing is open to any
// authenticated account (users pick an office when requesting a permit);
// mutations are restricted to the global admin by the router.
type OfficeHandler struct {
	Offices OfficeStore
	Audit   *repository.AuditRepo
}

func NewOfficeHandler(o OfficeStore, a *repository.AuditRepo) *OfficeHandler {
	return &OfficeHandler{Offices: o, Audit: a}
}

type officeReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns all offices ordered by name.
func (h *OfficeHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	offices, err := h.Offices.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"offices": offices})
}

// Create registers a new office and audits the action.
func (h *OfficeHandler) Create(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req officeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	o := model.Office{Name: req.Name, Description: strings.TrimSpace(req.Description), CreatedBy: ident.ID}
	if err := h.Offices.Create(ctx, &o); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create office failed"})
	}

	affected := o.ID
	recordAudit(h.Audit, ident, "office.created", "office "+o.Name+" created", &affected, o.Name, nil)
	return c.JSON(http.StatusCreated, o)
}

// Update edits an office's name and description, auditing field changes.
func (h *OfficeHandler) Update(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req officeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	before, err := h.Offices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOfficeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "office not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Offices.Update(ctx, id, req.Name, req.Description); err != nil {
		if errors.Is(err, repository.ErrOfficeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "office not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	changes := make([]model.AuditChange, 0, 2)
	if before.Name != req.Name {
		changes = append(changes, model.AuditChange{Field: "name", OldValue: before.Name, NewValue: req.Name})
	}
	if before.Description != req.Description {
		changes = append(changes, model.AuditChange{Field: "description", OldValue: before.Description, NewValue: req.Description})
	}
	if len(changes) > 0 {
		affected := id
		recordAudit(h.Audit, ident, "office.updated", "office "+req.Name+" updated", &affected, req.Name, changes)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes an office.  Deletion is refused while any account is
// still assigned to it.
func (h *OfficeHandler) Delete(c echo.Context) error {
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
	o, err := h.Offices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOfficeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "office not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Offices.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "office still has assigned accounts"})
		case errors.Is(err, repository.ErrOfficeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "office not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	affected := id
	recordAudit(h.Audit, ident, "office.deleted", "office "+o.Name+" deleted", &affected, o.Name, nil)
	return c.NoContent(http.StatusNoContent)
}
