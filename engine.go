package goSession

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/identity"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// AuthContext defines a public type used by goSession APIs.
//
// AuthContext owns the three domain sessions, the request pipeline and the
// token endpoint client. It is built by [Builder.Build], must be started with
// [AuthContext.Start] before requests are sent, and is safe for concurrent use.
type AuthContext struct {
	config    Config
	logger    *zap.Logger
	validator *jwt.Validator
	store     *session.TokenStore
	user      *session.State
	vendor    *session.State
	admin     *session.State
	endpoint  *refresh.Client
	pipeline  *transport.Pipeline
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	clock     func() time.Time

	// redis is closed by Close only when Build created it.
	redis redis.UniversalClient

	startMu sync.Mutex
	started atomic.Bool
	closed  atomic.Bool
	report  CleanupReport
}

// Start runs startup cleanup and restores every domain session from the
// store. Later calls return the first report. A failed Start may be retried.
func (a *AuthContext) Start(ctx context.Context) (CleanupReport, error) {
	if a == nil || a.closed.Load() {
		return CleanupReport{}, ErrEngineNotReady
	}

	a.startMu.Lock()
	defer a.startMu.Unlock()
	if a.started.Load() {
		return a.report, nil
	}

	report, err := a.cleanup(ctx)
	if err != nil {
		return CleanupReport{}, err
	}
	for _, s := range a.states() {
		if err := s.Init(ctx); err != nil {
			return CleanupReport{}, fmt.Errorf("restore %s session: %w", s.Domain(), err)
		}
		if s.Authenticated() {
			report.Restored = append(report.Restored, s.Domain())
		}
	}

	a.report = report
	a.started.Store(true)
	a.logger.Info("session context started",
		zap.Int("purged", len(report.Purged)),
		zap.Int("restored", len(report.Restored)),
		zap.String("role", a.Role().String()),
	)
	return report, nil
}

// Close stops the audit dispatcher and releases a Redis client created by
// Build. It is idempotent.
func (a *AuthContext) Close() {
	if a == nil || !a.closed.CompareAndSwap(false, true) {
		return
	}
	if a.audit != nil {
		a.audit.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.logger.Sync()
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (a *AuthContext) AuditDropped() uint64 {
	if a == nil || a.audit == nil {
		return 0
	}
	return a.audit.Dropped()
}

// AuditStats returns the audit dispatcher counters. It is zero when audit is
// disabled.
func (a *AuthContext) AuditStats() AuditStats {
	if a == nil || a.audit == nil {
		return AuditStats{}
	}
	return a.audit.Stats()
}

// MetricsSnapshot returns a copy of all counters.
func (a *AuthContext) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

func (a *AuthContext) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

func (a *AuthContext) states() []*session.State {
	return []*session.State{a.user, a.vendor, a.admin}
}

// Session returns the state of d, or nil for an unknown domain.
func (a *AuthContext) Session(d Domain) *session.State {
	if a == nil {
		return nil
	}
	switch d {
	case identity.DomainUser:
		return a.user
	case identity.DomainVendor:
		return a.vendor
	case identity.DomainAdmin:
		return a.admin
	default:
		return nil
	}
}

func (a *AuthContext) sessionFor(d Domain) (*session.State, error) {
	if a == nil || a.closed.Load() {
		return nil, ErrEngineNotReady
	}
	s := a.Session(d)
	if s == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, string(d))
	}
	return s, nil
}

// Role resolves the current role from all three sessions.
func (a *AuthContext) Role() Role {
	if a == nil {
		return identity.RoleAnonymous
	}
	return identity.ResolveRole(a.user, a.vendor, a.admin)
}

// Principal returns the principal of the current role, or nil when Anonymous.
func (a *AuthContext) Principal() Principal {
	d, ok := a.Role().Domain()
	if !ok {
		return nil
	}
	return a.Session(d).Principal()
}

// CanAccess evaluates the route guard for the current role.
func (a *AuthContext) CanAccess(required ...Role) middleware.Decision {
	return middleware.CanAccess(required, a.Role(), a.config.Routes.Paths())
}

// Guard returns net/http middleware admitting only required roles.
func (a *AuthContext) Guard(required ...Role) func(http.Handler) http.Handler {
	return middleware.GuardWithOptions(a, a.config.Routes.Paths(), middleware.Options{
		OnDeny: func(r *http.Request, current identity.Role, d middleware.Decision) {
			a.metricInc(MetricGuardDenied)
			a.logger.Debug("route denied",
				zap.String("path", r.URL.Path),
				zap.String("role", current.String()),
				zap.String("redirect", d.Redirect),
			)
		},
	}, required...)
}

// HTTPClient returns a client whose requests go through the pipeline.
func (a *AuthContext) HTTPClient() *http.Client {
	return a.pipeline.Client()
}

// Do sends req through the pipeline.
func (a *AuthContext) Do(req *http.Request) (*http.Response, error) {
	return a.pipeline.Do(req)
}

// Login exchanges credentials at the login endpoint of d and installs the
// returned credential.
func (a *AuthContext) Login(ctx context.Context, d Domain, credentials any) (Principal, error) {
	s, err := a.sessionFor(d)
	if err != nil {
		return nil, err
	}

	res := flows.RunLogin(ctx, credentials, flows.LoginDeps{
		Session:  s,
		Endpoint: a.endpoint,
		Others:   a.exclusiveOthers(),
	})
	if err := a.finishInstall(ctx, res, auditEventLogin); err != nil {
		return nil, err
	}
	return res.Principal, nil
}

// SetCredentials validates and installs a credential for d obtained outside
// the login endpoint.
func (a *AuthContext) SetCredentials(ctx context.Context, d Domain, token, refreshToken string, principal Principal) error {
	s, err := a.sessionFor(d)
	if err != nil {
		return err
	}

	res := flows.InstallCredential(ctx, token, refreshToken, principal, s, a.exclusiveOthers())
	return a.finishInstall(ctx, res, auditEventSetCredentials)
}

func (a *AuthContext) exclusiveOthers() []flows.LoginSession {
	if !a.config.Session.ExclusiveLogin {
		return nil
	}
	return []flows.LoginSession{a.user, a.vendor, a.admin}
}

func (a *AuthContext) finishInstall(ctx context.Context, res flows.LoginResult, event string) error {
	log := a.logger.With(zap.String("domain", string(res.Domain)))

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRejected:
		a.metricInc(MetricCredentialsRejected)
		a.metricInc(MetricLoginFailure)
		a.emitAudit(ctx, auditEventCredentialsRejected, false, res.Domain, "", res.Err, nil)
		log.Warn("credentials rejected", zap.Error(res.Err))
		return fmt.Errorf("%w: %w", ErrLoginFailed, res.Err)
	default:
		a.metricInc(MetricLoginFailure)
		a.emitAudit(ctx, event, false, res.Domain, "", res.Err, func() map[string]string {
			return map[string]string{"reason": res.Failure.String()}
		})
		log.Warn("login failed", zap.String("reason", res.Failure.String()), zap.Error(res.Err))
		return fmt.Errorf("%w: %w", ErrLoginFailed, res.Err)
	}

	a.metricInc(MetricLoginSuccess)
	principalID := ""
	if res.Principal != nil {
		principalID = res.Principal.PrincipalID()
	}
	a.emitAudit(ctx, event, true, res.Domain, principalID, nil, nil)
	for _, d := range res.Displaced {
		a.metricInc(MetricLogout)
		a.emitAudit(ctx, auditEventLogout, true, d, "", nil, func() map[string]string {
			return map[string]string{"reason": "displaced", "by": string(res.Domain)}
		})
	}
	log.Info("credential installed", zap.Int("displaced", len(res.Displaced)))

	if res.Err != nil {
		log.Warn("logout of displaced domain failed", zap.Error(res.Err))
		return res.Err
	}
	return nil
}

// Logout clears the session of d. It is idempotent.
func (a *AuthContext) Logout(ctx context.Context, d Domain) error {
	s, err := a.sessionFor(d)
	if err != nil {
		return err
	}

	res := flows.RunLogout(ctx, s)
	if len(res.Domains) > 0 {
		a.metricInc(MetricLogout)
		a.emitAudit(ctx, auditEventLogout, true, d, "", nil, nil)
		a.logger.Info("logged out", zap.String("domain", string(d)))
	}
	return res.Err
}

// LogoutAll clears every domain session.
func (a *AuthContext) LogoutAll(ctx context.Context) error {
	if a == nil || a.closed.Load() {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, a.user, a.vendor, a.admin)
	a.metricInc(MetricLogoutAll)
	for _, d := range res.Domains {
		a.emitAudit(ctx, auditEventLogout, true, d, "", nil, func() map[string]string {
			return map[string]string{"scope": "all"}
		})
	}
	return res.Err
}

// UpdateProfile replaces the principal of its domain's session, keeping the
// tokens. It returns ErrNotAuthenticated when that domain is Anonymous.
func (a *AuthContext) UpdateProfile(ctx context.Context, principal Principal) error {
	if principal == nil {
		return fmt.Errorf("%w: nil principal", ErrCredentialsRejected)
	}
	s, err := a.sessionFor(principal.Domain())
	if err != nil {
		return err
	}
	if err := s.UpdateProfile(ctx, principal); err != nil {
		return err
	}
	a.metricInc(MetricProfileUpdated)
	return nil
}
