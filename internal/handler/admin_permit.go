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
	"github.com/VRCarlos21/QrSanfer/internal/queue"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
	"github.com/VRCarlos21/QrSanfer/internal/service"
)

// AdminPermitHandler serves the office-admin review endpoints.  Office
// admins only see and decide permits of their own offices; the global
// admin sees everything.
type AdminPermitHandler struct {
	Permits *repository.PermitRepo
	Audit   *repository.AuditRepo
}

func NewAdminPermitHandler(p *repository.PermitRepo, a *repository.AuditRepo) *AdminPermitHandler {
	return &AdminPermitHandler{Permits: p, Audit: a}
}

// officeScoped reports whether the actor may act on permits of the office.
func officeScoped(u *model.User, officeID uint64) bool {
	if u.Role == model.RoleAdminGlobal {
		return true
	}
	for _, o := range u.Offices {
		if o == officeID {
			return true
		}
	}
	return false
}

// List returns permits filtered by optional status and office, restricted
// to the admin's own offices unless the actor is the global admin.
func (h *AdminPermitHandler) List(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	officeID := queryUint(c, "office_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var offices []uint64
	switch {
	case officeID != 0:
		if !officeScoped(ident, officeID) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		offices = []uint64{officeID}
	case ident.Role == model.RoleAdminGlobal:
		offices = []uint64{0} // 0 = no office filter
	default:
		offices = ident.Offices
	}

	out := make([]permitResp, 0)
	for _, oid := range offices {
		permits, err := h.Permits.List(ctx, status, oid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		for _, p := range permits {
			out = append(out, permitRespOf(p))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"permits": out})
}

type decidePermitReq struct {
	Decision string `json:"decision"` // APPROVED | REJECTED
	Message  string `json:"message"`
}

// Decide approves or rejects a pending permit.  Approval generates the QR
// code; both outcomes append history, audit the action and notify the
// requester through the broker.  Deciding an already decided permit fails
// with 409.
func (h *AdminPermitHandler) Decide(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req decidePermitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	decision := strings.ToUpper(strings.TrimSpace(req.Decision))
	if !model.ValidPermitDecision(decision, model.PermitPending) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be APPROVED or REJECTED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Permits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !officeScoped(ident, p.OfficeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		if decision == model.PermitApproved {
			message = "request approved"
		} else {
			message = "request rejected"
		}
	}

	var qrData string
	if decision == model.PermitApproved {
		qrData, err = service.GenerateQR(p)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate qr failed"})
		}
	}

	if err := h.Permits.Decide(ctx, id, decision, qrData, message); err != nil {
		switch {
		case errors.Is(err, repository.ErrPermitNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permit not found"})
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "permit already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decide failed"})
	}

	affected := p.ID
	recordAudit(h.Audit, ident, "permit."+strings.ToLower(decision),
		"permit "+p.Folio+" "+strings.ToLower(decision), &affected, p.Name,
		[]model.AuditChange{{Field: "status", OldValue: p.Status, NewValue: decision}})

	_ = queue.PublishPermitDecided(ctx, queue.PermitDecidedEvent{
		PermitID:       p.ID,
		Folio:          p.Folio,
		EmployeeNumber: p.EmployeeNumber,
		Name:           p.Name,
		Email:          p.Email,
		OfficeID:       p.OfficeID,
		Status:         decision,
		Message:        message,
		DecidedBy:      ident.Email,
		DecidedAt:      time.Now().UTC().Format(time.RFC3339),
	})

	p.Status = decision
	p.QRDataURL = qrData
	return c.JSON(http.StatusOK, permitRespOf(p))
}
