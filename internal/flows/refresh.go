package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoRefreshToken
	RefreshFailureTransport
	RefreshFailureRejected
	RefreshFailureDecode
	RefreshFailureInvalidToken
	RefreshFailurePersist
	RefreshFailureSuperseded
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureNoRefreshToken:
		return "no_refresh_token"
	case RefreshFailureTransport:
		return "transport"
	case RefreshFailureRejected:
		return "rejected"
	case RefreshFailureDecode:
		return "decode"
	case RefreshFailureInvalidToken:
		return "invalid_token"
	case RefreshFailurePersist:
		return "persist"
	case RefreshFailureSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// RefreshResult carries either the renewed token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Domain  identity.Domain
	Token   string
	// Skipped is set when a concurrent caller had already rotated the token.
	Skipped bool
	// Rotated is set when the endpoint issued a new refresh token.
	Rotated   bool
	Latency   time.Duration
	LogoutErr error
}

// RefreshSession is the per-domain state the refresh flow mutates.
type RefreshSession interface {
	Token() string
	RefreshToken() string
	// Rotate installs the renewed credential unless the one holding
	// expectRefresh is gone; then it returns session.ErrCredentialChanged.
	Rotate(ctx context.Context, expectRefresh, token, refreshToken string, principal identity.Principal) error
	Logout(ctx context.Context) error
}

type RefreshEndpoint interface {
	Refresh(ctx context.Context, d identity.Domain, refreshToken string) (*refresh.TokenResponse, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Session  RefreshSession
	Endpoint RefreshEndpoint
	IsValid  func(string) bool
	Now      func() time.Time
}

// RunRefresh renews the token of domain d after staleToken was answered with
// 401. Every failure leaves d logged out, except RefreshFailureSuperseded: the
// domain was logged out or logged in again while the exchange ran, and that
// newer state is kept.
func RunRefresh(ctx context.Context, d identity.Domain, staleToken string, deps RefreshDeps) RefreshResult {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	if cur := deps.Session.Token(); cur != "" && cur != staleToken && deps.IsValid(cur) {
		return RefreshResult{Domain: d, Token: cur, Skipped: true}
	}

	refreshToken := deps.Session.RefreshToken()
	if refreshToken == "" {
		return fail(ctx, d, RefreshFailureNoRefreshToken, errors.New("no refresh token held"), 0, deps)
	}

	start := now()
	resp, err := deps.Endpoint.Refresh(ctx, d, refreshToken)
	latency := now().Sub(start)
	if err != nil {
		kind := RefreshFailureTransport
		switch {
		case errors.Is(err, refresh.ErrRejected):
			kind = RefreshFailureRejected
		case errors.Is(err, refresh.ErrDecode):
			kind = RefreshFailureDecode
		}
		return fail(ctx, d, kind, err, latency, deps)
	}

	if !deps.IsValid(resp.Token) {
		return fail(ctx, d, RefreshFailureInvalidToken, errors.New("issued token is not valid"), latency, deps)
	}

	var principal identity.Principal
	if resp.HasPrincipal() {
		principal, err = identity.DecodePrincipal(d, resp.Principal)
		if err != nil {
			return fail(ctx, d, RefreshFailureDecode, err, latency, deps)
		}
	}

	nextRefresh := refreshToken
	if resp.RefreshToken != "" {
		nextRefresh = resp.RefreshToken
	}

	if err := deps.Session.Rotate(ctx, refreshToken, resp.Token, nextRefresh, principal); err != nil {
		if errors.Is(err, session.ErrCredentialChanged) {
			return RefreshResult{Failure: RefreshFailureSuperseded, Err: err, Domain: d, Latency: latency}
		}
		kind := RefreshFailurePersist
		if errors.Is(err, session.ErrCredentialsRejected) {
			kind = RefreshFailureInvalidToken
		}
		return fail(ctx, d, kind, err, latency, deps)
	}

	return RefreshResult{
		Domain:  d,
		Token:   resp.Token,
		Rotated: nextRefresh != refreshToken,
		Latency: latency,
	}
}

func fail(ctx context.Context, d identity.Domain, kind RefreshFailureKind, err error, latency time.Duration, deps RefreshDeps) RefreshResult {
	return RefreshResult{
		Failure:   kind,
		Err:       err,
		Domain:    d,
		Latency:   latency,
		LogoutErr: deps.Session.Logout(ctx),
	}
}
