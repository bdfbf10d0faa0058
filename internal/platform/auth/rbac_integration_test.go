package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// helper creates an echo context with the given roles set on the request context.
func newContextWithRoles(method, path string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

var okHandler = func(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// TestRequireRole_AdminAccessesAll verifies that the admin role can access any
// role-protected endpoint regardless of which roles are listed.
func TestRequireRole_AdminAccessesAll(t *testing.T) {
	domainRoles := [][]string{
		{"clinician", "assistant"},
		{"inventory"},
		{"clinician"},
		{"frontdesk"},
	}

	for _, roles := range domainRoles {
		c, _ := newContextWithRoles(http.MethodGet, "/", []string{"admin"})
		mw := RequireRole(roles...)
		err := mw(okHandler)(c)
		if err != nil {
			t.Errorf("admin should access endpoint requiring %v, got error: %v", roles, err)
		}
	}
}

// TestRequireRole_ClinicianAccessesCases verifies that a clinician can read
// and write case endpoints which list "clinician" as a permitted role.
func TestRequireRole_ClinicianAccessesCases(t *testing.T) {
	caseRoles := []string{"admin", "clinician", "assistant"}

	c, _ := newContextWithRoles(http.MethodGet, "/cases", []string{"clinician"})
	mw := RequireRole(caseRoles...)
	err := mw(okHandler)(c)
	if err != nil {
		t.Errorf("clinician should access case endpoints, got error: %v", err)
	}

	// Also verify write access
	c, _ = newContextWithRoles(http.MethodPost, "/reservations", []string{"clinician"})
	mw = RequireRole(caseRoles...)
	err = mw(okHandler)(c)
	if err != nil {
		t.Errorf("clinician should write to reservation endpoints, got error: %v", err)
	}
}

// TestRequireRole_InventoryAccessesLots verifies that the inventory role can
// manage stock lot endpoints.
func TestRequireRole_InventoryAccessesLots(t *testing.T) {
	// Lot read: admin, clinician, assistant, inventory
	c, _ := newContextWithRoles(http.MethodGet, "/lots", []string{"inventory"})
	mw := RequireRole("admin", "clinician", "assistant", "inventory")
	err := mw(okHandler)(c)
	if err != nil {
		t.Errorf("inventory role should read lot endpoints, got error: %v", err)
	}

	// Lot write: admin, inventory (clinicians NOT included)
	c, _ = newContextWithRoles(http.MethodPost, "/lots", []string{"inventory"})
	mw = RequireRole("admin", "inventory")
	err = mw(okHandler)(c)
	if err != nil {
		t.Errorf("inventory role should write to lot endpoints, got error: %v", err)
	}
}

// TestRequireRole_InventoryDeniedReservations verifies that the inventory role
// cannot place or resolve reservations.
func TestRequireRole_InventoryDeniedReservations(t *testing.T) {
	// Reservation write: admin, clinician, assistant -- inventory NOT included
	c, _ := newContextWithRoles(http.MethodPost, "/reservations", []string{"inventory"})
	mw := RequireRole("admin", "clinician", "assistant")
	err := mw(okHandler)(c)
	if err == nil {
		t.Error("inventory role should NOT place reservations")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}

// TestRequireRole_FrontdeskDeniedStock verifies that a frontdesk role cannot
// touch stock endpoints.
func TestRequireRole_FrontdeskDeniedStock(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodGet, "/lots", []string{"frontdesk"})
	mw := RequireRole("admin", "clinician", "assistant", "inventory")
	err := mw(okHandler)(c)
	if err == nil {
		t.Error("frontdesk role should NOT access stock endpoints")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}

// TestRequireRole_NoRoleDenied verifies that a request with no roles is denied
// access to any role-protected endpoint.
func TestRequireRole_NoRoleDenied(t *testing.T) {
	// Empty roles slice
	c, _ := newContextWithRoles(http.MethodGet, "/cases", []string{})
	mw := RequireRole("admin", "clinician", "assistant")
	err := mw(okHandler)(c)
	if err == nil {
		t.Error("empty roles should be denied")
	}

	// Nil roles (no context value)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cases", nil)
	rec := httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = mw(okHandler)(c)
	if err == nil {
		t.Error("nil roles should be denied")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}
