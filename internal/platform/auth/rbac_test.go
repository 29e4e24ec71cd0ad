package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := contextWithRoles(RoleViewer)
	if err := RequireRole(RoleClinician, RoleViewer)(okHandler)(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := contextWithRoles(RoleViewer)
	expectStatus(t, RequireRole(RoleClinician)(okHandler)(c), http.StatusForbidden)
}

func TestRequireRole_NoIdentity(t *testing.T) {
	c, _ := contextWithRoles()
	expectStatus(t, RequireRole(RoleViewer)(okHandler)(c), http.StatusForbidden)
}

func TestRequireRole_AdminBypass(t *testing.T) {
	c, _ := contextWithRoles(RoleAdmin)
	if err := RequireRole(RoleClinician)(okHandler)(c); err != nil {
		t.Error("admin should bypass role checks")
	}
}
