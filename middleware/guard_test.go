package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/identity"
)

func okHandler(t *testing.T, want identity.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := RoleFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, want, role)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestGuardRedirects(t *testing.T) {
	role := identity.RoleAnonymous
	src := RoleSourceFunc(func() identity.Role { return role })
	h := RequireVendor(src, DefaultPaths())(okHandler(t, identity.RoleVendor))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendor/events", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/vendor/login", rec.Header().Get("Location"))

	role = identity.RoleUser
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendor/events", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/not-authorized", rec.Header().Get("Location"))

	role = identity.RoleVendor
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendor/events", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGuardOnDeny(t *testing.T) {
	var denied atomic.Int32
	src := RoleSourceFunc(func() identity.Role { return identity.RoleUser })
	h := GuardWithOptions(src, DefaultPaths(), Options{
		OnDeny: func(_ *http.Request, current identity.Role, d Decision) {
			assert.Equal(t, identity.RoleUser, current)
			assert.Equal(t, "/not-authorized", d.Redirect)
			denied.Add(1)
		},
	}, identity.RoleAdmin)(okHandler(t, identity.RoleAdmin))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.EqualValues(t, 1, denied.Load())
}

func TestGuardNilSourceIsAnonymous(t *testing.T) {
	h := RequireAdmin(nil, DefaultPaths())(okHandler(t, identity.RoleAdmin))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestGuardAnyAuthenticated(t *testing.T) {
	src := RoleSourceFunc(func() identity.Role { return identity.RoleAdmin })
	h := Guard(src, DefaultPaths())(okHandler(t, identity.RoleAdmin))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
