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

// OfficeChangeHandler serves the office reassignment workflow: users file
// a justified request, the global admin approves or rejects it, and
// approval rewrites the requester's office assignment.
type OfficeChangeHandler struct {
	Changes *repository.OfficeChangeRepo
	Offices *repository.OfficeRepo
	Audit   *repository.AuditRepo
}

func NewOfficeChangeHandler(ch *repository.OfficeChangeRepo, o *repository.OfficeRepo, a *repository.AuditRepo) *OfficeChangeHandler {
	return &OfficeChangeHandler{Changes: ch, Offices: o, Audit: a}
}

type officeChangeReq struct {
	WantedOfficeID uint64 `json:"wanted_office_id"`
	Justification  string `json:"justification"`
}

// Submit files a new office-change request for the authenticated user.
func (h *OfficeChangeHandler) Submit(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req officeChangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Justification = strings.TrimSpace(req.Justification)
	if req.WantedOfficeID == 0 || req.Justification == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "wanted_office_id and justification required"})
	}
	var current uint64
	if len(ident.Offices) > 0 {
		current = ident.Offices[0]
	}
	if current == req.WantedOfficeID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "already assigned to that office"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if _, err := h.Offices.GetByID(ctx, req.WantedOfficeID); err != nil {
		if errors.Is(err, repository.ErrOfficeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "office not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	oc := model.OfficeChangeRequest{
		UserID:          ident.ID,
		UserName:        ident.Name,
		CurrentOfficeID: current,
		WantedOfficeID:  req.WantedOfficeID,
		Justification:   req.Justification,
	}
	if err := h.Changes.Create(ctx, &oc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}
	return c.JSON(http.StatusCreated, oc)
}

// Mine lists the authenticated user's own requests, newest first.
func (h *OfficeChangeHandler) Mine(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Changes.ListByUser(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": items})
}

// Pending lists all pending requests for the admin review screen.
func (h *OfficeChangeHandler) Pending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Changes.ListPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": items})
}

type decideChangeReq struct {
	Decision string `json:"decision"` // APPROVED | REJECTED
}

// Decide approves or rejects a pending request.  Approval reassigns the
// requesting user to the wanted office in the same transaction; both
// outcomes are audited and pushed to the user's notification feed.
func (h *OfficeChangeHandler) Decide(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req decideChangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	decision := strings.ToUpper(strings.TrimSpace(req.Decision))
	if !model.ValidOfficeChangeDecision(decision, model.OfficeChangePending) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be APPROVED or REJECTED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	oc, err := h.Changes.Decide(ctx, id, decision, ident.ID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOfficeChangeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "request already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decide failed"})
	}

	affected := oc.UserID
	recordAudit(h.Audit, ident, "office_change."+strings.ToLower(decision),
		fmt.Sprintf("office change for %s %s", oc.UserName, strings.ToLower(decision)),
		&affected, oc.UserName,
		[]model.AuditChange{{
			Field:    "office",
			OldValue: fmt.Sprintf("%d", oc.CurrentOfficeID),
			NewValue: fmt.Sprintf("%d", oc.WantedOfficeID),
		}})

	msg := fmt.Sprintf("Your office change request was %s.", strings.ToLower(decision))
	if err := h.Audit.Notify(ctx, oc.UserID, "office_change", msg); err != nil {
		c.Logger().Warnf("notify user %d failed: %v", oc.UserID, err)
	}
	return c.JSON(http.StatusOK, oc)
}
