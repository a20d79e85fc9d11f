package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/config"
	"github.com/VRCarlos21/QrSanfer/internal/handler"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	Register(e, Deps{
		Cfg:    config.Config{JWTSecret: "test-secret"},
		Auth:   &handler.AuthHandler{},
		Permit: &handler.PermitHandler{},
		Admin:  &handler.AdminPermitHandler{},
		Guard:  &handler.VigilanteHandler{},
		Office: &handler.OfficeHandler{},
		Change: &handler.OfficeChangeHandler{},
		Acct:   &handler.AccountHandler{},
		Audit:  &handler.AuditHandler{},
		Photo:  &handler.PhotoHandler{},
	})
	return e
}

func TestRegisterRouteTable(t *testing.T) {
	e := newTestEcho()
	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	want := []string{
		"GET /healthz",
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"POST /v1/auth/logout",
		"GET /v1/me",
		"POST /v1/permits",
		"GET /v1/permits",
		"GET /v1/permits/:id",
		"GET /v1/offices",
		"POST /v1/office-changes",
		"GET /v1/office-changes",
		"GET /v1/notifications",
		"POST /v1/notifications/:id/read",
		"POST /v1/guard/scan",
		"POST /v1/guard/lookup",
		"GET /v1/guard/board",
		"GET /v1/guard/readings",
		"GET /v1/guard/report",
		"GET /fotos/:file",
		"GET /v1/admin/permits",
		"POST /v1/admin/permits/:id/decision",
		"GET /v1/admin/readings",
		"GET /v1/admin/accounts",
		"PATCH /v1/admin/accounts/:id",
		"DELETE /v1/admin/accounts/:id",
		"POST /v1/admin/offices",
		"PUT /v1/admin/offices/:id",
		"DELETE /v1/admin/offices/:id",
		"GET /v1/admin/office-changes",
		"POST /v1/admin/office-changes/:id/decision",
		"GET /v1/admin/audit",
		"POST /v1/admin/photos/:employee_number",
	}
	for _, w := range want {
		if !routes[w] {
			t.Errorf("route %s not registered", w)
		}
	}
}

// A request to a registered path without a bearer token stops at the JWT
// middleware with 401; an unregistered path falls through to echo's 404.
// That difference pins the :id segments to real IDs like /v1/permits/5.
func TestParamRoutesMatchNumericIDs(t *testing.T) {
	e := newTestEcho()
	cases := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/v1/permits/5", http.StatusUnauthorized},
		{http.MethodPost, "/v1/notifications/7/read", http.StatusUnauthorized},
		{http.MethodPost, "/v1/admin/permits/3/decision", http.StatusUnauthorized},
		{http.MethodDelete, "/v1/admin/offices/2", http.StatusUnauthorized},
		{http.MethodGet, "/v1/permits5", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.target, rec.Code, tc.want)
		}
	}
}

func TestHealthzOpen(t *testing.T) {
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
}
