package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func resetAuth() {
	auth = nil
}

func enableAuth() {
	auth = &authConfig{
		admin:    credentials{user: "admin", pass: "secret"},
		operator: credentials{user: "operator", pass: "opsecret"},
		enabled:  true,
	}
}

// call runs handler with the given basic auth and returns the status code.
func call(handler http.HandlerFunc, method, user, pass string) int {
	req := httptest.NewRequest(method, "/test", nil)
	req.SetBasicAuth(user, pass)
	w := httptest.NewRecorder()
	handler(w, req)
	return w.Code
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthDisabledWhenNoEnvVars(t *testing.T) {
	for _, name := range []string{"INTPHYS_ADMIN_USER", "INTPHYS_ADMIN_PASS", "INTPHYS_OPERATOR_USER", "INTPHYS_OPERATOR_PASS"} {
		t.Setenv(name, "")
		t.Setenv(name+"_FILE", "")
	}
	if err := InitAuth(); err != nil {
		t.Fatal(err)
	}
	defer resetAuth()

	if IsAuthEnabled() {
		t.Error("auth should be disabled when no env vars are set")
	}
	w := httptest.NewRecorder()
	RequireAdmin(okHandler)(w, httptest.NewRequest("POST", "/control/stop", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestInitAuthReadsSecretFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass")
	if err := os.WriteFile(path, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INTPHYS_ADMIN_USER", "admin")
	t.Setenv("INTPHYS_ADMIN_PASS_FILE", path)
	t.Setenv("INTPHYS_OPERATOR_USER", "")
	t.Setenv("INTPHYS_OPERATOR_PASS", "")
	if err := InitAuth(); err != nil {
		t.Fatal(err)
	}
	defer resetAuth()

	if !IsAuthEnabled() || auth.admin.pass != "from-file" {
		t.Errorf("auth: %+v", auth)
	}

	t.Setenv("INTPHYS_ADMIN_PASS_FILE", filepath.Join(t.TempDir(), "missing"))
	if err := InitAuth(); err == nil {
		t.Error("expected an error for a missing secret file")
	}
}

func TestAuthEnabledRequiresCredentials(t *testing.T) {
	enableAuth()
	defer resetAuth()

	req := httptest.NewRequest("GET", "/progress", nil)
	w := httptest.NewRecorder()
	RequireAnyRole(okHandler)(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestRoles(t *testing.T) {
	enableAuth()
	defer resetAuth()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		user, pass string
		want       int
	}{
		{"admin reads", RequireAnyRole(okHandler), "admin", "secret", http.StatusOK},
		{"operator reads", RequireAnyRole(okHandler), "operator", "opsecret", http.StatusOK},
		{"wrong password", RequireAnyRole(okHandler), "admin", "wrongpassword", http.StatusUnauthorized},
		{"admin stops", RequireAdmin(okHandler), "admin", "secret", http.StatusOK},
		{"operator cannot stop", RequireAdmin(okHandler), "operator", "opsecret", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := call(tt.handler, "POST", tt.user, tt.pass); code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, code)
			}
		})
	}
}

func TestAuthWithOnlyAdminConfigured(t *testing.T) {
	auth = &authConfig{
		admin:   credentials{user: "admin", pass: "secret"},
		enabled: true,
	}
	defer resetAuth()

	if code := call(RequireAnyRole(okHandler), "GET", "admin", "secret"); code != http.StatusOK {
		t.Errorf("admin: expected status 200, got %d", code)
	}
	// an unset operator never matches, even with empty credentials
	if code := call(RequireAnyRole(okHandler), "GET", "operator", ""); code != http.StatusUnauthorized {
		t.Errorf("operator: expected status 401, got %d", code)
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("test", "test") {
		t.Error("identical strings should match")
	}
	if secureCompare("test", "Test") {
		t.Error("different case should not match")
	}
	if secureCompare("", "test") {
		t.Error("empty vs non-empty should not match")
	}
}
