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
	"github.com/VRCarlos21/QrSanfer/internal/service"
)

// BoardPermitStore lists the approved internal permits for the equipment
// board.
type BoardPermitStore interface {
	BoardInternal(ctx context.Context, officeIDs []uint64, today time.Time) ([]model.Permit, error)
}

// BoardExternalStore lists external equipment recorded at an office.
type BoardExternalStore interface {
	ListByGuardOffice(ctx context.Context, guardOfficeID uint64, status string) ([]model.ExternalEquipment, error)
}

// ReadingLog queries the reading history for the guard screens.
type ReadingLog interface {
	List(ctx context.Context, f repository.ReadingFilter) ([]model.Reading, error)
	CountSince(ctx context.Context, officeID uint64, since time.Time) (internal, external int, err error)
	CountByDay(ctx context.Context, officeID uint64, from time.Time) ([]repository.DayCount, error)
}

// ExternalCounter reads the running external scan total.
type ExternalCounter interface {
	ExternalScans(ctx context.Context) (int64, error)
}

// VigilanteHandler serves the guard endpoints: QR scan, manual lookup, the
// equipment board, the reading log and the shift report.
type VigilanteHandler struct {
	Scanner   *service.Scanner
	Permits   BoardPermitStore
	Externals BoardExternalStore
	Readings  ReadingLog
	Counters  ExternalCounter
	Photos    service.PhotoResolver
}

func NewVigilanteHandler(sc *service.Scanner, p BoardPermitStore, e BoardExternalStore, r ReadingLog, cnt ExternalCounter, ph service.PhotoResolver) *VigilanteHandler {
	return &VigilanteHandler{Scanner: sc, Permits: p, Externals: e, Readings: r, Counters: cnt, Photos: ph}
}

func guardOf(u *model.User) service.Guard {
	return service.Guard{ID: u.ID, Name: u.Name, Offices: u.Offices}
}

// scanError maps scanner errors to HTTP responses.
func scanError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidQR):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable qr payload"})
	case errors.Is(err, service.ErrEquipmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "equipment not found"})
	case errors.Is(err, service.ErrPermitExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "permit expired"})
	case errors.Is(err, service.ErrGuardWithoutOffice):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no office assigned"})
	case errors.Is(err, repository.ErrStatusConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "status changed concurrently, rescan"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan failed"})
}

type scanReq struct {
	Payload string `json:"payload"`
}

// Scan toggles the equipment matched by a raw QR payload.
func (h *VigilanteHandler) Scan(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req scanReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Payload) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Scanner.ScanQR(ctx, req.Payload, guardOf(ident))
	if err != nil {
		return scanError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type lookupReq struct {
	EmployeeNumber string `json:"employee_number"`
}

// Lookup toggles equipment by a manually entered badge number.
func (h *VigilanteHandler) Lookup(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req lookupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	num := strings.ToUpper(strings.TrimSpace(req.EmployeeNumber))
	if !model.ValidEmployeeNumber(num) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee number must match M<digits>"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Scanner.Lookup(ctx, num, guardOf(ident))
	if err != nil {
		return scanError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type boardEntry struct {
	EmployeeNumber string     `json:"employee_number"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	External       bool       `json:"external"`
	DaysRemaining  int        `json:"days_remaining,omitempty"`
	HomeOfficeID   uint64     `json:"home_office_id,omitempty"`
	PhotoURL       string     `json:"photo_url,omitempty"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

// Board returns the live equipment overview for the guard's offices: all
// approved, unexpired internal permits plus external equipment currently
// inside (status IN).  OUT external records are filtered, not deleted.
func (h *VigilanteHandler) Board(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if len(ident.Offices) == 0 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no office assigned"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	now := time.Now()

	internal, err := h.Permits.BoardInternal(ctx, ident.Offices, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	entries := make([]boardEntry, 0, len(internal))
	for _, p := range internal {
		e := boardEntry{
			EmployeeNumber: p.EmployeeNumber,
			Name:           p.Name,
			Status:         p.EquipmentStatus,
			DaysRemaining:  service.DaysRemaining(now, p.ExpiresAt),
			LastReadAt:     p.LastReadAt,
		}
		if e.Status == "" {
			e.Status = model.EquipmentIn
		}
		if url, ok := h.Photos.URL(p.EmployeeNumber); ok {
			e.PhotoURL = url
		}
		entries = append(entries, e)
	}

	for _, oid := range ident.Offices {
		externals, err := h.Externals.ListByGuardOffice(ctx, oid, model.EquipmentIn)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		for _, x := range externals {
			t := x.LastReadAt
			e := boardEntry{
				EmployeeNumber: x.EmployeeNumber,
				Name:           x.Name,
				Status:         x.Status,
				External:       true,
				HomeOfficeID:   x.HomeOfficeID,
				LastReadAt:     &t,
			}
			if url, ok := h.Photos.URL(x.EmployeeNumber); ok {
				e.PhotoURL = url
			}
			entries = append(entries, e)
		}
	}

	var in, out, ext int
	for _, e := range entries {
		if e.External {
			ext++
		}
		if e.Status == model.EquipmentOut {
			out++
		} else {
			in++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"equipment": entries,
		"summary":   echo.Map{"in": in, "out": out, "external": ext},
	})
}

// ReadingList returns the reading log, newest first, scoped to the guard's
// recording office unless an explicit office filter is given.
func (h *VigilanteHandler) ReadingList(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f := repository.ReadingFilter{
		EmployeeNumber: strings.ToUpper(strings.TrimSpace(c.QueryParam("employee_number"))),
		OfficeID:       queryUint(c, "office_id"),
		From:           queryTime(c, "from"),
		To:             queryTime(c, "to"),
		Limit:          int(queryUint(c, "limit")),
	}
	if v := c.QueryParam("external"); v != "" {
		ext := v == "true" || v == "1"
		f.External = &ext
	}
	if f.OfficeID == 0 && len(ident.Offices) > 0 && ident.Role == model.RoleVigilante {
		f.OfficeID = ident.Offices[0]
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	readings, err := h.Readings.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"readings": readings})
}

// Report summarizes activity at the guard's office since a given time
// (default: start of the current UTC day): internal and external reading
// counts plus the all-time external scan total.
func (h *VigilanteHandler) Report(c echo.Context) error {
	ident := middleware.Identity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if len(ident.Offices) == 0 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no office assigned"})
	}
	since := queryTime(c, "since")
	if since.IsZero() {
		since = time.Now().UTC().Truncate(24 * time.Hour)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	internal, external, err := h.Readings.CountSince(ctx, ident.Offices[0], since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	daily, err := h.Readings.CountByDay(ctx, ident.Offices[0], since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	total, err := h.Counters.ExternalScans(ctx)
	if err != nil {
		total = 0
	}
	return c.JSON(http.StatusOK, echo.Map{
		"office_id":            ident.Offices[0],
		"since":                since,
		"internal_readings":    internal,
		"external_readings":    external,
		"daily":                daily,
		"external_scans_total": total,
	})
}
