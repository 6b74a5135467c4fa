package fakebackend

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/identity"
)

// Password is accepted by every login endpoint unless Options.Password is set.
const Password = "correct-horse"

// Options configure a Backend.
type Options struct {
	TokenTTL time.Duration
	Now      func() time.Time
	Password string
	// RefreshDelay is slept inside every refresh exchange.
	RefreshDelay time.Duration
	// KeepRefreshToken omits the refresh token from refresh replies, so the
	// client keeps its current one. The backend then accepts it again.
	KeepRefreshToken bool
	// FailRefresh answers every refresh exchange with this status.
	FailRefresh int
	// RefreshPrincipal includes the account principal in refresh replies.
	RefreshPrincipal bool
	// OnRefresh is called inside every refresh exchange before it is answered.
	OnRefresh func(d identity.Domain)
}

type grant struct {
	domain    identity.Domain
	principal json.RawMessage
}

// Backend holds issued tokens and call counters.
type Backend struct {
	opts   Options
	key    []byte
	router chi.Router

	mu       sync.Mutex
	grants   map[string]grant
	gen      map[identity.Domain]int64
	accounts map[identity.Domain]json.RawMessage

	loginCalls   sync.Map // identity.Domain -> *atomic.Int64
	refreshCalls sync.Map
	apiCalls     atomic.Int64
	apiRejected  atomic.Int64
}

// New returns a Backend with one account per domain.
func New(opts Options) *Backend {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Password == "" {
		opts.Password = Password
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("fakebackend: key: %v", err))
	}

	b := &Backend{
		opts:   opts,
		key:    key,
		grants: map[string]grant{},
		gen:    map[identity.Domain]int64{},
		accounts: map[identity.Domain]json.RawMessage{
			identity.DomainUser:   json.RawMessage(`{"id":"u-100","name":"Dana Guest","email":"dana@example.com"}`),
			identity.DomainVendor: json.RawMessage(`{"id":4711,"businessName":"Lakeside Events","contactName":"Sam Ortiz","email":"sam@lakeside.example","phone":"+1-555-0100"}`),
			identity.DomainAdmin:  json.RawMessage(`{"id":"a-1","name":"Platform Admin","email":"ops@example.com"}`),
		},
	}

	r := chi.NewRouter()
	r.Post("/{domain}/login", b.handleLogin)
	r.Post("/{domain}/refresh-token", b.handleRefresh)
	r.Get("/api/*", b.handleAPI)
	r.Post("/api/*", b.handleAPI)
	b.router = r
	return b
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// Server is a Backend listening on a local port.
type Server struct {
	*Backend
	*httptest.Server
}

// Start serves a new Backend. Callers must Close the server.
func Start(opts Options) *Server {
	b := New(opts)
	return &Server{Backend: b, Server: httptest.NewServer(b)}
}

// Account returns the principal JSON issued for d.
func (b *Backend) Account(d identity.Domain) json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(json.RawMessage(nil), b.accounts[d]...)
}

// Mint signs a token for d expiring at exp without creating a grant.
func (b *Backend) Mint(d identity.Domain, subject string, exp time.Time) string {
	b.mu.Lock()
	gen := b.gen[d]
	b.mu.Unlock()
	return b.sign(d, subject, exp, gen)
}

// Grant issues a token and a refresh token for d as if it had logged in.
func (b *Backend) Grant(d identity.Domain) (token, refreshToken string, principal json.RawMessage) {
	principal = b.Account(d)
	token, refreshToken = b.issue(d, principal)
	return token, refreshToken, principal
}

// Expire makes every token issued so far for d answer 401.
func (b *Backend) Expire(d identity.Domain) {
	b.mu.Lock()
	b.gen[d]++
	b.mu.Unlock()
}

// RefreshCalls returns the number of refresh exchanges for d.
func (b *Backend) RefreshCalls(d identity.Domain) int64 {
	return counter(&b.refreshCalls, d).Load()
}

// LoginCalls returns the number of login requests for d.
func (b *Backend) LoginCalls(d identity.Domain) int64 {
	return counter(&b.loginCalls, d).Load()
}

// APICalls returns the number of protected requests served and rejected.
func (b *Backend) APICalls() (served, rejected int64) {
	return b.apiCalls.Load(), b.apiRejected.Load()
}

func counter(m *sync.Map, d identity.Domain) *atomic.Int64 {
	v, _ := m.LoadOrStore(d, new(atomic.Int64))
	return v.(*atomic.Int64)
}

type claims struct {
	Domain string `json:"dom"`
	Gen    int64  `json:"gen"`
	gojwt.RegisteredClaims
}

func (b *Backend) sign(d identity.Domain, subject string, exp time.Time, gen int64) string {
	now := b.opts.Now()
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims{
		Domain: string(d),
		Gen:    gen,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString(b.key)
	if err != nil {
		panic(fmt.Sprintf("fakebackend: sign: %v", err))
	}
	return s
}

func (b *Backend) issue(d identity.Domain, principal json.RawMessage) (string, string) {
	b.mu.Lock()
	gen := b.gen[d]
	rt := uuid.NewString()
	b.grants[rt] = grant{domain: d, principal: principal}
	b.mu.Unlock()

	return b.sign(d, subjectOf(principal), b.opts.Now().Add(b.opts.TokenTTL), gen), rt
}

func subjectOf(principal json.RawMessage) string {
	var p struct {
		ID identity.ID `json:"id"`
	}
	_ = json.Unmarshal(principal, &p)
	return string(p.ID)
}

var errStaleToken = errors.New("token generation revoked")

// verify checks signature, expiry and generation of a bearer token.
func (b *Backend) verify(raw string) (*claims, error) {
	var c claims
	_, err := gojwt.ParseWithClaims(raw, &c, func(*gojwt.Token) (any, error) {
		return b.key, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(b.opts.Now),
		gojwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	current := b.gen[identity.Domain(c.Domain)]
	b.mu.Unlock()
	if c.Gen != current {
		return nil, errStaleToken
	}
	return &c, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func domainParam(r *http.Request) (identity.Domain, bool) {
	d, err := identity.ParseDomain(chi.URLParam(r, "domain"))
	return d, err == nil
}

type tokenReply struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	Principal    json.RawMessage `json:"principal,omitempty"`
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	d, ok := domainParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown domain"})
		return
	}
	counter(&b.loginCalls, d).Add(1)

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	if body.Password != b.opts.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	principal := b.Account(d)
	token, rt := b.issue(d, principal)
	writeJSON(w, http.StatusOK, tokenReply{Token: token, RefreshToken: rt, Principal: principal})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	d, ok := domainParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown domain"})
		return
	}
	counter(&b.refreshCalls, d).Add(1)
	if b.opts.RefreshDelay > 0 {
		time.Sleep(b.opts.RefreshDelay)
	}
	if b.opts.OnRefresh != nil {
		b.opts.OnRefresh(d)
	}
	if b.opts.FailRefresh != 0 {
		writeJSON(w, b.opts.FailRefresh, map[string]string{"error": "refresh disabled"})
		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}

	b.mu.Lock()
	g, ok := b.grants[body.RefreshToken]
	if ok && g.domain == d && !b.opts.KeepRefreshToken {
		delete(b.grants, body.RefreshToken)
	}
	b.mu.Unlock()
	if !ok || g.domain != d {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token invalid"})
		return
	}

	if b.opts.KeepRefreshToken {
		b.mu.Lock()
		gen := b.gen[d]
		b.mu.Unlock()
		token := b.sign(d, subjectOf(g.principal), b.opts.Now().Add(b.opts.TokenTTL), gen)
		writeJSON(w, http.StatusOK, tokenReply{Token: token})
		return
	}

	reply := tokenReply{}
	reply.Token, reply.RefreshToken = b.issue(d, g.principal)
	if b.opts.RefreshPrincipal {
		reply.Principal = g.principal
	}
	writeJSON(w, http.StatusOK, reply)
}

func (b *Backend) handleAPI(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		b.apiRejected.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer"})
		return
	}
	c, err := b.verify(raw)
	if err != nil {
		b.apiRejected.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}

	b.apiCalls.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{
		"domain":     c.Domain,
		"subject":    c.Subject,
		"path":       r.URL.Path,
		"request_id": r.Header.Get("X-Request-ID"),
	})
}
