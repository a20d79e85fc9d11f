package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
	"github.com/VRCarlos21/QrSanfer/internal/service"
)

// In-memory stores shared by the scanner and the board endpoints.

type memPermits struct {
	permits map[uint64]*model.Permit
}

func (m *memPermits) GetByArtifactURL(_ context.Context, url string) (model.Permit, error) {
	for _, p := range m.permits {
		if p.ArtifactURL == url {
			return *p, nil
		}
	}
	return model.Permit{}, repository.ErrPermitNotFound
}

func (m *memPermits) GetByEmployeeNumber(_ context.Context, num string) (model.Permit, error) {
	for _, p := range m.permits {
		if p.EmployeeNumber == num && p.Status == model.PermitApproved {
			return *p, nil
		}
	}
	return model.Permit{}, repository.ErrPermitNotFound
}

func (m *memPermits) ToggleEquipment(_ context.Context, id uint64, expected string, at time.Time) (string, error) {
	p, ok := m.permits[id]
	if !ok || p.EquipmentStatus != expected {
		return "", repository.ErrStatusConflict
	}
	p.EquipmentStatus = model.ToggleEquipment(expected)
	p.LastReadAt = &at
	return p.EquipmentStatus, nil
}

func (m *memPermits) BoardInternal(_ context.Context, officeIDs []uint64, today time.Time) ([]model.Permit, error) {
	in := map[uint64]bool{}
	for _, id := range officeIDs {
		in[id] = true
	}
	out := []model.Permit{}
	for _, p := range m.permits {
		if in[p.OfficeID] && p.Status == model.PermitApproved && service.DaysRemaining(today, p.ExpiresAt) > 0 {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memExternals struct {
	records map[string]*model.ExternalEquipment
}

func (m *memExternals) Get(_ context.Context, num string) (model.ExternalEquipment, error) {
	if r, ok := m.records[num]; ok {
		return *r, nil
	}
	return model.ExternalEquipment{}, repository.ErrExternalNotFound
}

func (m *memExternals) Create(_ context.Context, e *model.ExternalEquipment) error {
	e.Status = model.EquipmentIn
	cp := *e
	m.records[e.EmployeeNumber] = &cp
	return nil
}

func (m *memExternals) Toggle(_ context.Context, num, expected string, guardOfficeID uint64, at time.Time) (string, error) {
	r, ok := m.records[num]
	if !ok || r.Status != expected {
		return "", repository.ErrStatusConflict
	}
	r.Status = model.ToggleEquipment(expected)
	r.GuardOfficeID = guardOfficeID
	r.LastReadAt = at
	return r.Status, nil
}

func (m *memExternals) ListByGuardOffice(_ context.Context, guardOfficeID uint64, status string) ([]model.ExternalEquipment, error) {
	out := []model.ExternalEquipment{}
	for _, r := range m.records {
		if r.GuardOfficeID == guardOfficeID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

type memReadings struct{ readings []model.Reading }

func (m *memReadings) Append(_ context.Context, rd *model.Reading) error {
	m.readings = append(m.readings, *rd)
	return nil
}

func (m *memReadings) List(_ context.Context, f repository.ReadingFilter) ([]model.Reading, error) {
	out := []model.Reading{}
	for _, r := range m.readings {
		if f.EmployeeNumber != "" && r.EmployeeNumber != f.EmployeeNumber {
			continue
		}
		if f.OfficeID != 0 && r.OfficeID != f.OfficeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memReadings) CountSince(_ context.Context, officeID uint64, since time.Time) (int, int, error) {
	var internal, external int
	for _, r := range m.readings {
		if r.OfficeID != officeID || r.CreatedAt.Before(since) {
			continue
		}
		if r.External {
			external++
		} else {
			internal++
		}
	}
	return internal, external, nil
}

func (m *memReadings) CountByDay(_ context.Context, officeID uint64, from time.Time) ([]repository.DayCount, error) {
	byDay := map[string]*repository.DayCount{}
	order := []string{}
	for _, r := range m.readings {
		if r.OfficeID != officeID || r.CreatedAt.Before(from) {
			continue
		}
		day := r.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &repository.DayCount{Day: day}
			byDay[day] = d
			order = append(order, day)
		}
		if r.External {
			d.External++
		} else {
			d.Internal++
		}
	}
	out := make([]repository.DayCount, 0, len(order))
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out, nil
}

type memCounter struct{ n int64 }

func (m *memCounter) IncrExternalScans(context.Context) (int64, error) { m.n++; return m.n, nil }
func (m *memCounter) ExternalScans(context.Context) (int64, error)    { return m.n, nil }

type noPhotos struct{}

func (noPhotos) URL(string) (string, bool) { return "", false }

type guardFixture struct {
	h        *VigilanteHandler
	permits  *memPermits
	readings *memReadings
}

func newGuardFixture() *guardFixture {
	permits := &memPermits{permits: map[uint64]*model.Permit{}}
	externals := &memExternals{records: map[string]*model.ExternalEquipment{}}
	readings := &memReadings{}
	counter := &memCounter{}
	scanner := service.NewScanner(permits, externals, readings, counter, noPhotos{})
	return &guardFixture{
		h:        NewVigilanteHandler(scanner, permits, externals, readings, counter, noPhotos{}),
		permits:  permits,
		readings: readings,
	}
}

func guardContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxIdentity, &model.User{
		ID: 9, Name: "Gate One", Role: model.RoleVigilante, IsActive: true, Offices: []uint64{7},
	})
	return c, rec
}

func approvedPermit(id uint64, num, url string, officeID uint64) *model.Permit {
	return &model.Permit{
		ID:             id,
		EmployeeNumber: num,
		Name:           "Laura Ortiz",
		OfficeID:       officeID,
		ExpiresAt:      time.Now().UTC().AddDate(0, 0, 7),
		Status:         model.PermitApproved,
		ArtifactURL:    url,
	}
}

func TestScanEndpointTogglesPermit(t *testing.T) {
	f := newGuardFixture()
	f.permits.permits[1] = approvedPermit(1, "M1001", "https://files.example.com/p1.pdf", 7)

	body := `{"payload":"Nombre: Laura\nEmpleado: M1001\nFecha: x\nPDF: https://files.example.com/p1.pdf"}`
	c, rec := guardContext(t, http.MethodPost, "/v1/guard/scan", body)
	if err := f.h.Scan(c); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res service.ScanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != model.EquipmentOut || res.External {
		t.Fatalf("got status=%q external=%v, want internal OUT", res.Status, res.External)
	}
	if len(f.readings.readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(f.readings.readings))
	}
}

func TestScanEndpointExpired(t *testing.T) {
	f := newGuardFixture()
	p := approvedPermit(1, "M1001", "https://files.example.com/p1.pdf", 7)
	p.ExpiresAt = time.Now().UTC().AddDate(0, 0, -2)
	f.permits.permits[1] = p

	body := `{"payload":"PDF: https://files.example.com/p1.pdf"}`
	c, rec := guardContext(t, http.MethodPost, "/v1/guard/scan", body)
	if err := f.h.Scan(c); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if len(f.readings.readings) != 0 {
		t.Fatalf("expired scan must not log readings")
	}
}

func TestLookupEndpointRejectsBadNumber(t *testing.T) {
	f := newGuardFixture()
	c, rec := guardContext(t, http.MethodPost, "/v1/guard/lookup", `{"employee_number":"X42"}`)
	if err := f.h.Lookup(c); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBoardShowsExternalInOnly(t *testing.T) {
	f := newGuardFixture()
	f.permits.permits[1] = approvedPermit(1, "M1001", "https://files.example.com/p1.pdf", 7)

	// External equipment visiting office 7, then a visitor that already left.
	ext := f.h.Externals.(*memExternals)
	ext.records["M2002"] = &model.ExternalEquipment{
		EmployeeNumber: "M2002", Name: "Visitante", HomeOfficeID: 3,
		GuardOfficeID: 7, Status: model.EquipmentIn, LastReadAt: time.Now(),
	}
	ext.records["M3003"] = &model.ExternalEquipment{
		EmployeeNumber: "M3003", Name: "Gone", HomeOfficeID: 3,
		GuardOfficeID: 7, Status: model.EquipmentOut, LastReadAt: time.Now(),
	}

	c, rec := guardContext(t, http.MethodGet, "/v1/guard/board", "")
	if err := f.h.Board(c); err != nil {
		t.Fatalf("board: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Equipment []boardEntry `json:"equipment"`
		Summary   struct {
			In       int `json:"in"`
			Out      int `json:"out"`
			External int `json:"external"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Equipment) != 2 {
		t.Fatalf("expected 2 entries (internal + external IN), got %d", len(resp.Equipment))
	}
	for _, e := range resp.Equipment {
		if e.EmployeeNumber == "M3003" {
			t.Fatal("OUT external record must not appear on the board")
		}
	}
	if resp.Summary.In != 2 || resp.Summary.Out != 0 || resp.Summary.External != 1 {
		t.Fatalf("summary = %+v, want in=2 out=0 external=1", resp.Summary)
	}
}

func TestReportCountsSince(t *testing.T) {
	f := newGuardFixture()
	now := time.Now().UTC()
	f.readings.readings = []model.Reading{
		{OfficeID: 7, External: false, CreatedAt: now},
		{OfficeID: 7, External: true, CreatedAt: now},
		{OfficeID: 7, External: true, CreatedAt: now},
		{OfficeID: 12, External: false, CreatedAt: now},
	}

	c, rec := guardContext(t, http.MethodGet, "/v1/guard/report", "")
	if err := f.h.Report(c); err != nil {
		t.Fatalf("report: %v", err)
	}
	var resp struct {
		Internal int `json:"internal_readings"`
		External int `json:"external_readings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Internal != 1 || resp.External != 2 {
		t.Fatalf("counts = %d/%d, want 1/2", resp.Internal, resp.External)
	}
}
