package goSession

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// CleanupReason says why startup cleanup purged a domain.
type CleanupReason string

const (
	CleanupExpired          CleanupReason = "expired"
	CleanupMalformedToken   CleanupReason = "malformed_token"
	CleanupCorruptPrincipal CleanupReason = "corrupt_principal"
	// CleanupIncomplete is a partial key triple, e.g. a token without principal.
	CleanupIncomplete CleanupReason = "incomplete"
)

// PurgedDomain is one entry of CleanupReport.Purged.
type PurgedDomain struct {
	Domain Domain
	Reason CleanupReason
}

// CleanupReport describes what Start found in the store.
type CleanupReport struct {
	Purged   []PurgedDomain
	Restored []Domain
}

// Reason returns the purge reason for d, if it was purged.
func (r CleanupReport) Reason(d Domain) (CleanupReason, bool) {
	for _, p := range r.Purged {
		if p.Domain == d {
			return p.Reason, true
		}
	}
	return "", false
}

func (a *AuthContext) cleanup(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	for _, d := range identity.Domains() {
		rec, err := a.store.Raw(ctx, d)
		if err != nil {
			return CleanupReport{}, fmt.Errorf("cleanup %s: %w", d, err)
		}
		reason, purge := a.classify(rec)
		if !purge {
			continue
		}

		if err := a.store.Clear(ctx, d); err != nil {
			return CleanupReport{}, fmt.Errorf("cleanup %s: %w", d, err)
		}
		report.Purged = append(report.Purged, PurgedDomain{Domain: d, Reason: reason})
		a.metricInc(MetricCleanupPurged)
		a.emitAudit(ctx, auditEventCleanupPurge, true, d, "", nil, func() map[string]string {
			return map[string]string{"reason": string(reason)}
		})
		a.logger.Info("purged stored credential",
			zap.String("domain", string(d)),
			zap.String("reason", string(reason)),
		)
	}
	return report, nil
}

// classify decides whether a stored record must be purged before restore.
func (a *AuthContext) classify(rec session.Record) (CleanupReason, bool) {
	if rec.Empty() {
		return "", false
	}
	if !rec.Complete() {
		return CleanupIncomplete, true
	}

	switch res := a.validator.Check(rec.Token); res.Reason {
	case jwt.ReasonMalformed:
		return CleanupMalformedToken, true
	case jwt.ReasonExpired:
		return CleanupExpired, true
	}

	if _, err := session.Decode(rec); err != nil {
		return CleanupCorruptPrincipal, true
	}
	return "", false
}
