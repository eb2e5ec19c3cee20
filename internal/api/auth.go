package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/IntPhysDirector/internal/config"
)

// Role represents an authorization role.
type Role string

const (
	// RoleAdmin may stop the run.
	RoleAdmin Role = "admin"
	// RoleOperator may watch it.
	RoleOperator Role = "operator"
)

type credentials struct {
	user string
	pass string
}

func (c credentials) set() bool {
	return c.user != "" && c.pass != ""
}

func (c credentials) match(user, pass string) bool {
	return c.set() && secureCompare(user, c.user) && secureCompare(pass, c.pass)
}

// authConfig holds credentials loaded from environment variables.
type authConfig struct {
	admin    credentials
	operator credentials
	enabled  bool
}

var auth *authConfig

// InitAuth loads the credentials from INTPHYS_ADMIN_USER, INTPHYS_ADMIN_PASS,
// INTPHYS_OPERATOR_USER and INTPHYS_OPERATOR_PASS, each also accepted as a
// *_FILE variable. Without admin credentials authentication is disabled.
func InitAuth() error {
	var values [4]string
	for i, name := range []string{
		"INTPHYS_ADMIN_USER", "INTPHYS_ADMIN_PASS",
		"INTPHYS_OPERATOR_USER", "INTPHYS_OPERATOR_PASS",
	} {
		v, err := config.ResolveSecret(name)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		values[i] = v
	}

	admin := credentials{user: values[0], pass: values[1]}
	auth = &authConfig{
		admin:    admin,
		operator: credentials{user: values[2], pass: values[3]},
		enabled:  admin.set(),
	}
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate returns the role of the request, or "" for bad credentials.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	switch {
	case auth.admin.match(user, pass):
		return RoleAdmin
	case auth.operator.match(user, pass):
		return RoleOperator
	}
	return ""
}

// secureCompare performs constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="intphys"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireRole wraps a handler and requires one of the specified roles.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole wraps a handler requiring admin OR operator role.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin wraps a handler requiring admin role only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
