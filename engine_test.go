package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/fakebackend"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

func TestLoginInstallsCredential(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	backend := session.NewMemoryBackend()
	actx := startedContext(t, srv, backend, nil)

	p := loginAs(t, actx, DomainVendor)
	v, ok := p.(identity.Vendor)
	require.True(t, ok, "principal type %T", p)
	assert.Equal(t, identity.ID("4711"), v.ID)
	assert.Equal(t, "Lakeside Events", v.BusinessName)

	assert.Equal(t, RoleVendor, actx.Role())
	assert.Equal(t, "4711", actx.Principal().PrincipalID())
	assert.Equal(t, 3, backend.Len())

	keys := session.Keys(DomainVendor)
	values, err := backend.Load(context.Background(), keys.All())
	require.NoError(t, err)
	assert.Equal(t, actx.Session(DomainVendor).Token(), values[keys.Token])
	assert.NotEmpty(t, values[keys.RefreshToken])
	assert.JSONEq(t, `{"id":"4711","businessName":"Lakeside Events","contactName":"Sam Ortiz","email":"sam@lakeside.example","phone":"+1-555-0100"}`, values[keys.Principal])

	snap := actx.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricLoginSuccess])
}

func TestExclusiveLoginDisplacesOtherDomains(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)

	loginAs(t, actx, DomainUser)
	if actx.Role() != RoleUser {
		t.Fatalf("role = %s, want user", actx.Role())
	}

	loginAs(t, actx, DomainVendor)
	if actx.Session(DomainUser).Authenticated() {
		t.Fatalf("user session survived vendor login")
	}
	if actx.Role() != RoleVendor {
		t.Fatalf("role = %s, want vendor", actx.Role())
	}
	if got := actx.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("logout counter = %d, want 1", got)
	}
}

func TestNonExclusiveLoginResolvesHighestRole(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), func(b *Builder) {
		b.config.Session.ExclusiveLogin = false
	})

	loginAs(t, actx, DomainAdmin)
	loginAs(t, actx, DomainVendor)

	assert.True(t, actx.Session(DomainAdmin).Authenticated())
	assert.True(t, actx.Session(DomainVendor).Authenticated())
	assert.Equal(t, RoleAdmin, actx.Role())

	require.NoError(t, actx.Logout(context.Background(), DomainAdmin))
	assert.Equal(t, RoleVendor, actx.Role())
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)

	loginAs(t, actx, DomainVendor)
	before := actx.Session(DomainVendor).Token()

	_, err := actx.Login(context.Background(), DomainAdmin, map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	require.ErrorIs(t, err, ErrLoginFailed)
	require.ErrorIs(t, err, refresh.ErrRejected)

	var statusErr *refresh.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	assert.Equal(t, RoleVendor, actx.Role())
	assert.Equal(t, before, actx.Session(DomainVendor).Token())
	assert.Equal(t, uint64(1), actx.MetricsSnapshot().Counters[MetricLoginFailure])
}

func TestLoginUnknownDomain(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)

	_, err := actx.Login(context.Background(), Domain("partner"), nil)
	if !errors.Is(err, ErrInvalidDomain) {
		t.Fatalf("expected ErrInvalidDomain, got %v", err)
	}
	if got := srv.LoginCalls(Domain("partner")); got != 0 {
		t.Fatalf("endpoint called %d times", got)
	}
}

func TestSetCredentialsRejectsExpiredToken(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	backend := session.NewMemoryBackend()
	actx := startedContext(t, srv, backend, nil)

	expired := srv.Mint(DomainVendor, "4711", time.Now().Add(-time.Minute))
	err := actx.SetCredentials(context.Background(), DomainVendor, expired, "rt", vendorPrincipal(srv))
	require.ErrorIs(t, err, ErrCredentialsRejected)

	assert.False(t, actx.Session(DomainVendor).Authenticated())
	assert.Equal(t, RoleAnonymous, actx.Role())
	assert.Equal(t, 0, backend.Len())
	assert.Equal(t, uint64(1), actx.MetricsSnapshot().Counters[MetricCredentialsRejected])
}

func TestSetCredentialsRejectsMissingPrincipalID(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)

	token := srv.Mint(DomainUser, "", time.Now().Add(time.Hour))
	err := actx.SetCredentials(context.Background(), DomainUser, token, "", identity.User{Name: "nobody"})
	if !errors.Is(err, ErrCredentialsRejected) {
		t.Fatalf("expected ErrCredentialsRejected, got %v", err)
	}
	if actx.Session(DomainUser).Authenticated() {
		t.Fatalf("user authenticated with an id-less principal")
	}
}

func TestSetCredentialsWithoutRefreshToken(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	backend := session.NewMemoryBackend()
	actx := startedContext(t, srv, backend, nil)

	token := srv.Mint(DomainVendor, "4711", time.Now().Add(time.Hour))
	require.NoError(t, actx.SetCredentials(context.Background(), DomainVendor, token, "", vendorPrincipal(srv)))

	assert.Equal(t, RoleVendor, actx.Role())
	assert.Empty(t, actx.Session(DomainVendor).RefreshToken())
}

func TestLogoutIsIdempotent(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	backend := session.NewMemoryBackend()
	actx := startedContext(t, srv, backend, nil)

	loginAs(t, actx, DomainUser)
	for i := 0; i < 2; i++ {
		if err := actx.Logout(context.Background(), DomainUser); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}
	if actx.Role() != RoleAnonymous {
		t.Fatalf("role = %s after logout", actx.Role())
	}
	if backend.Len() != 0 {
		t.Fatalf("store holds %d keys after logout", backend.Len())
	}
	if got := actx.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("logout counter = %d, want 1", got)
	}
}

func TestLogoutAll(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	backend := session.NewMemoryBackend()
	actx := startedContext(t, srv, backend, func(b *Builder) {
		b.config.Session.ExclusiveLogin = false
	})

	loginAs(t, actx, DomainUser)
	loginAs(t, actx, DomainAdmin)

	require.NoError(t, actx.LogoutAll(context.Background()))
	for _, d := range identity.Domains() {
		assert.False(t, actx.Session(d).Authenticated(), "%s still authenticated", d)
	}
	assert.Equal(t, 0, backend.Len())
	assert.Equal(t, uint64(1), actx.MetricsSnapshot().Counters[MetricLogoutAll])
}

func TestUpdateProfile(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{TokenTTL: time.Hour})
	backend := session.NewMemoryBackend()
	actx := startedContext(t, srv, backend, nil)

	err := actx.UpdateProfile(context.Background(), identity.Vendor{ID: "4711", BusinessName: "Renamed"})
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, backend.Len())

	loginAs(t, actx, DomainVendor)
	token := actx.Session(DomainVendor).Token()

	require.NoError(t, actx.UpdateProfile(context.Background(), identity.Vendor{ID: "4711", BusinessName: "Renamed"}))
	assert.Equal(t, "Renamed", actx.Principal().DisplayName())
	assert.Equal(t, token, actx.Session(DomainVendor).Token())

	restored := startedContext(t, srv, backend, nil)
	require.Equal(t, RoleVendor, restored.Role())
	assert.Equal(t, "Renamed", restored.Principal().DisplayName())
	assert.Equal(t, token, restored.Session(DomainVendor).Token())
}

func TestUpdateProfileRejectsMissingID(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)
	loginAs(t, actx, DomainAdmin)

	err := actx.UpdateProfile(context.Background(), identity.Admin{Name: "ghost"})
	if !errors.Is(err, identity.ErrPrincipalMissingID) {
		t.Fatalf("expected ErrPrincipalMissingID, got %v", err)
	}
	if got := actx.Principal().PrincipalID(); got != "a-1" {
		t.Fatalf("principal id = %q, want a-1", got)
	}
}

func TestRequestsBeforeStartAreRefused(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := newTestContext(t, srv, session.NewMemoryBackend(), nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/orders", nil)
	require.NoError(t, err)

	_, err = actx.Do(req)
	require.ErrorIs(t, err, ErrNotStarted)

	served, rejected := srv.APICalls()
	assert.Zero(t, served+rejected)
}

func TestClosedContextRefusesWork(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)
	actx.Close()
	actx.Close()

	if err := actx.Logout(context.Background(), DomainUser); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := actx.Start(context.Background()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady from Start, got %v", err)
	}
}

func TestAuthenticatedRequestCarriesBearerAndRequestID(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)
	loginAs(t, actx, DomainVendor)

	resp, body := getAPI(t, actx, srv.URL+"/api/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "vendor", body["domain"])
	assert.Equal(t, "4711", body["subject"])
	assert.NotEmpty(t, body["request_id"])

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err = actx.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var echoed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Equal(t, "req-42", echoed["request_id"])
}

func TestAnonymousRequestIsSentWithoutBearer(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)

	resp, _ := getAPI(t, actx, srv.URL+"/api/events")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if got := srv.RefreshCalls(DomainUser); got != 0 {
		t.Fatalf("anonymous 401 triggered %d refreshes", got)
	}
}

func TestGuardRedirects(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)

	h := actx.Guard(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		return rec
	}

	rec := serve()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	loginAs(t, actx, DomainVendor)
	rec = serve()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/not-authorized", rec.Header().Get("Location"))

	loginAs(t, actx, DomainAdmin)
	rec = serve()
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, uint64(2), actx.MetricsSnapshot().Counters[MetricGuardDenied])
	assert.True(t, actx.CanAccess(RoleAdmin).Allow)
}
