package goSession

import (
	"io"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/identity"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// Domain, Role and Principal re-export the identity model.
type (
	Domain    = identity.Domain
	Role      = identity.Role
	Principal = identity.Principal
)

const (
	DomainUser   = identity.DomainUser
	DomainVendor = identity.DomainVendor
	DomainAdmin  = identity.DomainAdmin

	RoleAnonymous = identity.RoleAnonymous
	RoleUser      = identity.RoleUser
	RoleVendor    = identity.RoleVendor
	RoleAdmin     = identity.RoleAdmin
)

// AuditEvent is an alias for the internal canonical audit event model.
type AuditEvent = internalaudit.Event

// AuditStats reports audit delivery counters.
type AuditStats = internalaudit.Stats

// AuditSink receives audit events from the dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events through a zap logger.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
