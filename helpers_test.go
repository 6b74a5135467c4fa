package goSession

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/fakebackend"
	"github.com/MrEthical07/goSession/session"
)

func startBackend(t *testing.T, opts fakebackend.Options) *fakebackend.Server {
	t.Helper()
	srv := fakebackend.Start(opts)
	t.Cleanup(srv.Close)
	return srv
}

// newTestContext builds an unstarted AuthContext against srv.
func newTestContext(t *testing.T, srv *fakebackend.Server, backend session.Backend, configure func(*Builder)) *AuthContext {
	t.Helper()

	b := New().
		WithBaseURL(srv.URL).
		WithBackend(backend).
		WithHTTPClient(srv.Client()).
		WithLogger(zaptest.NewLogger(t)).
		WithMetricsEnabled(true)
	if configure != nil {
		configure(b)
	}

	actx, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(actx.Close)
	return actx
}

func startedContext(t *testing.T, srv *fakebackend.Server, backend session.Backend, configure func(*Builder)) *AuthContext {
	t.Helper()
	actx := newTestContext(t, srv, backend, configure)
	if _, err := actx.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return actx
}

func loginAs(t *testing.T, actx *AuthContext, d Domain) Principal {
	t.Helper()
	p, err := actx.Login(context.Background(), d, map[string]string{
		"email":    string(d) + "@example.com",
		"password": fakebackend.Password,
	})
	if err != nil {
		t.Fatalf("login %s: %v", d, err)
	}
	return p
}

// seed writes a raw key triple for d, skipping empty values.
func seed(t *testing.T, backend session.Backend, d Domain, token, refreshToken, principal string) {
	t.Helper()
	keys := session.Keys(d)
	values := map[string]string{}
	for k, v := range map[string]string{keys.Token: token, keys.RefreshToken: refreshToken, keys.Principal: principal} {
		if v != "" {
			values[k] = v
		}
	}
	if err := backend.Save(context.Background(), values); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func getAPI(t *testing.T, actx *AuthContext, url string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := actx.HTTPClient().Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func vendorPrincipal(srv *fakebackend.Server) identity.Principal {
	p, err := identity.DecodePrincipal(identity.DomainVendor, srv.Account(identity.DomainVendor))
	if err != nil {
		panic(err)
	}
	return p
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func newGet(url string) (*http.Request, error) {
	return http.NewRequest(http.MethodGet, url, nil)
}
