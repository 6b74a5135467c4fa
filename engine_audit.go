package goSession

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

const (
	auditEventLogin               = "login"
	auditEventSetCredentials      = "set_credentials"
	auditEventLogout              = "logout"
	auditEventRefresh             = "refresh"
	auditEventCleanupPurge        = "cleanup_purge"
	auditEventCredentialsRejected = "credentials_rejected"
)

// AuditErrorCode defines a public type used by goSession APIs.
//
// It is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrCredentialsRejected AuditErrorCode = "credentials_rejected"
	auditErrNoRefreshToken      AuditErrorCode = "no_refresh_token"
	auditErrEndpointRejected    AuditErrorCode = "endpoint_rejected"
	auditErrEndpointUnreachable AuditErrorCode = "endpoint_unreachable"
	auditErrEndpointDecode      AuditErrorCode = "endpoint_decode"
	auditErrPrincipalInvalid    AuditErrorCode = "principal_invalid"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrSessionChanged      AuditErrorCode = "session_changed"
	auditErrCanceled            AuditErrorCode = "canceled"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrCredentialsRejected):
		return auditErrCredentialsRejected
	case errors.Is(err, ErrNoRefreshToken):
		return auditErrNoRefreshToken
	case errors.Is(err, refresh.ErrRejected):
		return auditErrEndpointRejected
	case errors.Is(err, refresh.ErrTransport):
		return auditErrEndpointUnreachable
	case errors.Is(err, refresh.ErrDecode):
		return auditErrEndpointDecode
	case errors.Is(err, identity.ErrPrincipalMalformed),
		errors.Is(err, identity.ErrPrincipalMissingID),
		errors.Is(err, identity.ErrPrincipalDomainMismatch):
		return auditErrPrincipalInvalid
	case errors.Is(err, session.ErrCredentialChanged):
		return auditErrSessionChanged
	case errors.Is(err, session.ErrBackendUnavailable):
		return auditErrUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}

func (a *AuthContext) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	d identity.Domain,
	principalID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if a == nil || a.audit == nil {
		return
	}

	metadata := map[string]string{}
	if metadataBuilder != nil {
		for k, v := range metadataBuilder() {
			metadata[k] = v
		}
	}
	metadata["event_id"] = uuid.NewString()

	event := AuditEvent{
		Timestamp:   a.clock().UTC(),
		EventType:   eventType,
		Domain:      string(d),
		PrincipalID: principalID,
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	a.audit.Emit(ctx, event)
}
