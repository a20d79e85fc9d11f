package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/config"
	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/queue"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// PermitHandler serves the requester-facing permit endpoints: submitting a
// request, listing own permits and tracking one by folio.
type PermitHandler struct {
	Cfg     config.Config
	Permits *repository.PermitRepo
}

func NewPermitHandler(cfg config.Config, p *repository.PermitRepo) *PermitHandler {
	return &PermitHandler{Cfg: cfg, Permits: p}
}

type submitPermitReq struct {
	Name           string `json:"name"`
	EmployeeNumber string `json:"employee_number"`
	Email          string `json:"email"`
	OfficeID       uint64 `json:"office_id"`
	ExpiresAt      string `json:"expires_at"` // YYYY-MM-DD
}

type permitResp struct {
	ID              uint64     `json:"id"`
	Folio           string     `json:"folio"`
	EmployeeNumber  string     `json:"employee_number"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	OfficeID        uint64     `json:"office_id"`
	ExpiresAt       string     `json:"expires_at"`
	Status          string     `json:"status"`
	ArtifactURL     string     `json:"artifact_url"`
	QRDataURL       string     `json:"qr_data_url,omitempty"`
	EquipmentStatus string     `json:"equipment_status,omitempty"`
	LastReadAt      *time.Time `json:"last_read_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func permitRespOf(p model.Permit) permitResp {
	return permitResp{
		ID:              p.ID,
		Folio:           p.Folio,
		EmployeeNumber:  p.EmployeeNumber,
		Name:            p.Name,
		Email:           p.Email,
		OfficeID:        p.OfficeID,
		ExpiresAt:       p.ExpiresAt.UTC().Format("2006-01-02"),
		Status:          p.Status,
		ArtifactURL:     p.ArtifactURL,
		QRDataURL:       p.QRDataURL,
		EquipmentStatus: p.EquipmentStatus,
		LastReadAt:      p.LastReadAt,
		CreatedAt:       p.CreatedAt,
	}
}

// Submit files a new permit request.  The folio and artifact URL are
// assigned server-side; the permit starts PENDING and office admins are
// notified through the broker.
func (h *PermitHandler) Submit(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req submitPermitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.EmployeeNumber = strings.ToUpper(strings.TrimSpace(req.EmployeeNumber))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		req.Name = ident.Name
	}
	if req.EmployeeNumber == "" {
		req.EmployeeNumber = ident.EmployeeNumber
	}
	if req.Email == "" {
		req.Email = ident.Email
	}
	if !model.ValidEmployeeNumber(req.EmployeeNumber) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee number must match M<digits>"})
	}
	if req.OfficeID == 0 {
		if len(ident.Offices) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "office_id required"})
		}
		req.OfficeID = ident.Offices[0]
	}
	expires, err := time.ParseInLocation("2006-01-02", req.ExpiresAt, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be YYYY-MM-DD"})
	}
	if !expires.After(time.Now().UTC().Truncate(24 * time.Hour)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be a future date"})
	}

	folio := uuid.NewString()
	creator := ident.ID
	p := model.Permit{
		Folio:          folio,
		EmployeeNumber: req.EmployeeNumber,
		Name:           req.Name,
		Email:          req.Email,
		OfficeID:       req.OfficeID,
		ExpiresAt:      expires,
		ArtifactURL:    h.Cfg.ArtifactBase + "/" + folio + ".pdf",
		CreatedBy:      &creator,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Permits.Create(ctx, &p, "request received"); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create permit failed"})
	}

	// Broker failures are logged by the publisher and ignored here; the
	// permit is already stored.
	_ = queue.PublishPermitSubmitted(ctx, queue.PermitSubmittedEvent{
		PermitID:       p.ID,
		Folio:          p.Folio,
		EmployeeNumber: p.EmployeeNumber,
		Name:           p.Name,
		Email:          p.Email,
		OfficeID:       p.OfficeID,
		ExpiresAt:      p.ExpiresAt.UTC().Format("2006-01-02"),
		SubmittedAt:    time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, permitRespOf(p))
}

// Mine lists the requester's own permits, newest first.
func (h *PermitHandler) Mine(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	permits, err := h.Permits.ListByEmail(ctx, ident.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]permitResp, 0, len(permits))
	for _, p := range permits {
		out = append(out, permitRespOf(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"permits": out})
}

// Track returns one permit with its lifecycle history.  Requesters may
// only track their own permits.
func (h *PermitHandler) Track(c echo.Context) error {
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
	p, err := h.Permits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "permit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ident.Role == model.RoleUser && !strings.EqualFold(p.Email, ident.Email) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	history, err := h.Permits.History(ctx, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type historyResp struct {
		Status    string    `json:"status"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"created_at"`
	}
	hist := make([]historyResp, 0, len(history))
	for _, e := range history {
		hist = append(hist, historyResp{Status: e.Status, Message: e.Message, CreatedAt: e.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"permit":  permitRespOf(p),
		"history": hist,
	})
}
