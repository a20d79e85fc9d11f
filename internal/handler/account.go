package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// AccountHandler serves the global admin's account-control endpoints:
// directory listing, profile and role edits, office assignment, activation
// toggling and deletion.  Every mutation is audited with field-level
// changes.
type AccountHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Audit  *repository.AuditRepo
}

func NewAccountHandler(u *repository.UserRepo, t *repository.TokenRepo, a *repository.AuditRepo) *AccountHandler {
	return &AccountHandler{Users: u, Tokens: t, Audit: a}
}

// List returns the full account directory with office assignments.
func (h *AccountHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userPartOf(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"accounts": out})
}

type updateAccountReq struct {
	Name           *string   `json:"name"`
	Email          *string   `json:"email"`
	EmployeeNumber *string   `json:"employee_number"`
	Role           *string   `json:"role"`
	Offices        *[]uint64 `json:"offices"`
	IsActive       *bool     `json:"is_active"`
}

// Update edits an account.  Only the fields present in the body change;
// each change is recorded in the audit log.  Deactivation also revokes the
// account's refresh tokens so open sessions die with the access token.
func (h *AccountHandler) Update(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateAccountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	before, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}

	name, email, role, num := before.Name, before.Email, before.Role, before.EmployeeNumber
	changes := make([]model.AuditChange, 0, 4)
	if req.Name != nil && strings.TrimSpace(*req.Name) != name {
		changes = append(changes, model.AuditChange{Field: "name", OldValue: name, NewValue: strings.TrimSpace(*req.Name)})
		name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*req.Email))
		if e != "" && e != email {
			changes = append(changes, model.AuditChange{Field: "email", OldValue: email, NewValue: e})
			email = e
		}
	}
	if req.EmployeeNumber != nil {
		n := strings.ToUpper(strings.TrimSpace(*req.EmployeeNumber))
		if !model.ValidEmployeeNumber(n) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee number must match M<digits>"})
		}
		if n != num {
			changes = append(changes, model.AuditChange{Field: "employee_number", OldValue: num, NewValue: n})
			num = n
		}
	}
	if req.Role != nil {
		r := strings.ToUpper(strings.TrimSpace(*req.Role))
		if !model.KnownRole(r) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
		if r != role {
			changes = append(changes, model.AuditChange{Field: "role", OldValue: role, NewValue: r})
			role = r
		}
	}

	if len(changes) > 0 {
		if err := h.Users.UpdateProfile(ctx, id, name, email, role, num); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}

	if req.Offices != nil {
		if err := h.Users.SetOffices(ctx, id, *req.Offices); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign offices failed"})
		}
		changes = append(changes, model.AuditChange{
			Field:    "offices",
			OldValue: fmt.Sprint(before.Offices),
			NewValue: fmt.Sprint(*req.Offices),
		})
	}

	if req.IsActive != nil && *req.IsActive != before.IsActive {
		if err := h.Users.SetActive(ctx, id, *req.IsActive); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		if !*req.IsActive {
			_ = h.Tokens.RevokeAllForUser(ctx, id)
		}
		changes = append(changes, model.AuditChange{
			Field:    "is_active",
			OldValue: fmt.Sprint(before.IsActive),
			NewValue: fmt.Sprint(*req.IsActive),
		})
	}

	if len(changes) > 0 {
		affected := id
		recordAudit(h.Audit, ident, "account.updated", "account "+before.Email+" updated", &affected, before.Name, changes)
	}

	after, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userPartOf(after))
}

// Delete removes an account, its office assignment and refresh tokens.
// Admins cannot delete themselves.
func (h *AccountHandler) Delete(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id == ident.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete own account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	before, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	affected := id
	recordAudit(h.Audit, ident, "account.deleted", "account "+before.Email+" deleted", &affected, before.Name, nil)
	return c.NoContent(http.StatusNoContent)
}
