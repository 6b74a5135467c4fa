package goSession

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/transport"
)

// authority exposes AuthContext to the request pipeline.
type authority struct {
	a *AuthContext
}

var _ transport.Authority = authority{}

func (p authority) Ready() error {
	switch {
	case p.a.closed.Load():
		return ErrEngineNotReady
	case !p.a.started.Load():
		return ErrNotStarted
	}
	return nil
}

func (p authority) Role() identity.Role {
	return p.a.Role()
}

func (p authority) BearerToken(d identity.Domain) (string, bool) {
	s := p.a.Session(d)
	if s == nil {
		return "", false
	}
	tok := s.Token()
	return tok, tok != ""
}

func (p authority) Reauthenticate(ctx context.Context, d identity.Domain, stale string) (string, error) {
	return p.a.reauthenticate(ctx, d, stale)
}

func (a *AuthContext) reauthenticate(ctx context.Context, d identity.Domain, stale string) (string, error) {
	s, err := a.sessionFor(d)
	if err != nil {
		return "", err
	}

	res := flows.RunRefresh(ctx, d, stale, flows.RefreshDeps{
		Session:  s,
		Endpoint: a.endpoint,
		IsValid:  a.validator.IsValid,
		Now:      a.clock,
	})
	log := a.logger.With(zap.String("domain", string(d)))

	if res.Failure == flows.RefreshFailureSuperseded {
		a.metricInc(MetricRefreshFailure)
		a.metrics.Observe(MetricRefreshLatency, res.Latency)
		a.emitAudit(ctx, auditEventRefresh, false, d, "", res.Err, func() map[string]string {
			return map[string]string{"reason": res.Failure.String()}
		})
		log.Info("refresh discarded, session changed while in flight")
		return "", fmt.Errorf("%w: %w", ErrReauthFailed, ErrSessionChanged)
	}

	if res.Failure != flows.RefreshFailureNone {
		a.metricInc(MetricRefreshFailure)
		a.metricInc(MetricLogout)
		if res.Latency > 0 {
			a.metrics.Observe(MetricRefreshLatency, res.Latency)
		}
		a.emitAudit(ctx, auditEventRefresh, false, d, "", res.Err, func() map[string]string {
			return map[string]string{"reason": res.Failure.String()}
		})
		a.emitAudit(ctx, auditEventLogout, true, d, "", nil, func() map[string]string {
			return map[string]string{"reason": "refresh_failed"}
		})
		log.Warn("refresh failed",
			zap.String("reason", res.Failure.String()),
			zap.Error(res.Err),
		)
		if res.LogoutErr != nil {
			log.Error("logout after refresh failure did not clear store", zap.Error(res.LogoutErr))
		}

		if res.Failure == flows.RefreshFailureNoRefreshToken {
			return "", fmt.Errorf("%w: %w", ErrReauthFailed, ErrNoRefreshToken)
		}
		return "", fmt.Errorf("%w: %w", ErrReauthFailed, res.Err)
	}

	if res.Skipped {
		a.metricInc(MetricRefreshSkipped)
		log.Debug("token already rotated")
		return res.Token, nil
	}

	a.metricInc(MetricRefreshSuccess)
	a.metrics.Observe(MetricRefreshLatency, res.Latency)
	a.emitAudit(ctx, auditEventRefresh, true, d, principalID(s.Principal()), nil, func() map[string]string {
		if res.Rotated {
			return map[string]string{"rotated": "true"}
		}
		return nil
	})
	log.Debug("token refreshed", zap.Bool("rotated", res.Rotated), zap.Duration("latency", res.Latency))
	return res.Token, nil
}

func principalID(p identity.Principal) string {
	if p == nil {
		return ""
	}
	return p.PrincipalID()
}
