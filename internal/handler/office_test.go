package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/middleware"
	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// memOfficeStore backs the office handler with an in-memory catalog.
// assigned mirrors the user_offices check the real repo runs on delete.
type memOfficeStore struct {
	offices  map[uint64]model.Office
	assigned map[uint64]int
	nextID   uint64
}

func newMemOfficeStore() *memOfficeStore {
	return &memOfficeStore{offices: map[uint64]model.Office{}, assigned: map[uint64]int{}, nextID: 1}
}

func (m *memOfficeStore) List(context.Context) ([]model.Office, error) {
	out := make([]model.Office, 0, len(m.offices))
	for _, o := range m.offices {
		out = append(out, o)
	}
	return out, nil
}

func (m *memOfficeStore) GetByID(_ context.Context, id uint64) (*model.Office, error) {
	o, ok := m.offices[id]
	if !ok {
		return nil, repository.ErrOfficeNotFound
	}
	return &o, nil
}

func (m *memOfficeStore) Create(_ context.Context, o *model.Office) error {
	o.ID = m.nextID
	m.nextID++
	m.offices[o.ID] = *o
	return nil
}

func (m *memOfficeStore) Update(_ context.Context, id uint64, name, description string) error {
	o, ok := m.offices[id]
	if !ok {
		return repository.ErrOfficeNotFound
	}
	o.Name, o.Description = name, description
	m.offices[id] = o
	return nil
}

func (m *memOfficeStore) Delete(_ context.Context, id uint64) error {
	if _, ok := m.offices[id]; !ok {
		return repository.ErrOfficeNotFound
	}
	if m.assigned[id] > 0 {
		return repository.ErrConflict
	}
	delete(m.offices, id)
	return nil
}

func adminContext(t *testing.T, method, target, body string, id uint64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != 0 {
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatUint(id, 10))
	}
	c.Set(middleware.CtxIdentity, &model.User{
		ID: 1, Name: "Root Admin", Email: "root@example.com", Role: model.RoleAdminGlobal, IsActive: true,
	})
	return c, rec
}

func TestOfficeDeleteRefusedWhileAssigned(t *testing.T) {
	store := newMemOfficeStore()
	store.offices[4] = model.Office{ID: 4, Name: "Planta Norte"}
	store.assigned[4] = 2
	h := NewOfficeHandler(store, nil)

	c, rec := adminContext(t, http.MethodDelete, "/v1/admin/offices/4", "", 4)
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if _, ok := store.offices[4]; !ok {
		t.Fatal("office must survive a refused delete")
	}
}

func TestOfficeDeleteUnknown(t *testing.T) {
	h := NewOfficeHandler(newMemOfficeStore(), nil)
	c, rec := adminContext(t, http.MethodDelete, "/v1/admin/offices/99", "", 99)
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOfficeCreateRequiresName(t *testing.T) {
	h := NewOfficeHandler(newMemOfficeStore(), nil)
	c, rec := adminContext(t, http.MethodPost, "/v1/admin/offices", `{"name":"  "}`, 0)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
