package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureEndpoint
	LoginFailureDecode
	LoginFailureRejected
	LoginFailurePersist
)

func (k LoginFailureKind) String() string {
	switch k {
	case LoginFailureNone:
		return "none"
	case LoginFailureEndpoint:
		return "endpoint"
	case LoginFailureDecode:
		return "decode"
	case LoginFailureRejected:
		return "rejected"
	case LoginFailurePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	Domain    identity.Domain
	Principal identity.Principal
	// Displaced lists the other domains that were logged out.
	Displaced []identity.Domain
}

// LoginSession is the per-domain state the login flow writes.
type LoginSession interface {
	Domain() identity.Domain
	Authenticated() bool
	SetCredentials(ctx context.Context, token, refreshToken string, principal identity.Principal) error
	Logout(ctx context.Context) error
}

type LoginEndpoint interface {
	Login(ctx context.Context, d identity.Domain, credentials any) (*refresh.TokenResponse, error)
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Session  LoginSession
	Endpoint LoginEndpoint
	// Others are logged out after a successful login when exclusive login is on.
	Others []LoginSession
}

// RunLogin exchanges credentials at the login endpoint of the session's
// domain and installs the returned credential. Endpoint failures leave all
// state untouched.
func RunLogin(ctx context.Context, credentials any, deps LoginDeps) LoginResult {
	d := deps.Session.Domain()

	resp, err := deps.Endpoint.Login(ctx, d, credentials)
	if err != nil {
		return LoginResult{Failure: LoginFailureEndpoint, Err: err, Domain: d}
	}

	principal, err := identity.DecodePrincipal(d, resp.Principal)
	if err != nil {
		return LoginResult{Failure: LoginFailureDecode, Err: err, Domain: d}
	}

	return InstallCredential(ctx, resp.Token, resp.RefreshToken, principal, deps.Session, deps.Others)
}

// InstallCredential sets the credential on s and then logs out every
// authenticated session in others.
func InstallCredential(ctx context.Context, token, refreshToken string, principal identity.Principal, s LoginSession, others []LoginSession) LoginResult {
	d := s.Domain()
	if err := s.SetCredentials(ctx, token, refreshToken, principal); err != nil {
		kind := LoginFailurePersist
		if errors.Is(err, session.ErrCredentialsRejected) {
			kind = LoginFailureRejected
		}
		return LoginResult{Failure: kind, Err: err, Domain: d}
	}

	res := LoginResult{Domain: d, Principal: principal}
	var errs []error
	for _, o := range others {
		if o == nil || o.Domain() == d || !o.Authenticated() {
			continue
		}
		if err := o.Logout(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Displaced = append(res.Displaced, o.Domain())
	}
	res.Err = errors.Join(errs...)
	return res
}
