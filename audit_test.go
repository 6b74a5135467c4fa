package goSession

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/internal/fakebackend"
	"github.com/MrEthical07/goSession/session"
)

func withAudit(sink AuditSink) func(*Builder) {
	return func(b *Builder) {
		b.config.Audit.Enabled = true
		b.config.Audit.BufferSize = 64
		b.config.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	}
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditLoginAndDisplacement(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	sink := NewChannelSink(16)
	actx := startedContext(t, srv, session.NewMemoryBackend(), withAudit(sink))

	loginAs(t, actx, DomainUser)
	ev := nextEvent(t, sink)
	assert.Equal(t, "login", ev.EventType)
	assert.Equal(t, "user", ev.Domain)
	assert.Equal(t, "u-100", ev.PrincipalID)
	assert.True(t, ev.Success)
	assert.NotEmpty(t, ev.Metadata["event_id"])
	assert.False(t, ev.Timestamp.IsZero())

	loginAs(t, actx, DomainAdmin)
	ev = nextEvent(t, sink)
	assert.Equal(t, "login", ev.EventType)
	assert.Equal(t, "admin", ev.Domain)

	ev = nextEvent(t, sink)
	assert.Equal(t, "logout", ev.EventType)
	assert.Equal(t, "user", ev.Domain)
	assert.Equal(t, "displaced", ev.Metadata["reason"])
	assert.Equal(t, "admin", ev.Metadata["by"])

	require.Eventually(t, func() bool { return actx.AuditStats().Delivered == 3 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, actx.AuditStats().Dropped)
	assert.Zero(t, actx.AuditDropped())
}

func TestAuditStatsZeroWhenDisabled(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	actx := startedContext(t, srv, session.NewMemoryBackend(), nil)
	loginAs(t, actx, DomainUser)
	assert.Equal(t, AuditStats{}, actx.AuditStats())
}

func TestAuditRejectedCredentials(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	sink := NewChannelSink(16)
	actx := startedContext(t, srv, session.NewMemoryBackend(), withAudit(sink))

	err := actx.SetCredentials(context.Background(), DomainVendor, "garbage", "", vendorPrincipal(srv))
	require.ErrorIs(t, err, ErrCredentialsRejected)

	ev := nextEvent(t, sink)
	assert.Equal(t, "credentials_rejected", ev.EventType)
	assert.False(t, ev.Success)
	assert.Equal(t, string(auditErrCredentialsRejected), ev.Error)
}

func TestAuditRefreshFailure(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{FailRefresh: 500})
	sink := NewChannelSink(16)
	actx := startedContext(t, srv, session.NewMemoryBackend(), withAudit(sink))

	loginAs(t, actx, DomainVendor)
	_ = nextEvent(t, sink)
	srv.Expire(DomainVendor)

	resp, _ := getAPI(t, actx, srv.URL+"/api/bookings")
	require.Equal(t, 401, resp.StatusCode)

	ev := nextEvent(t, sink)
	assert.Equal(t, "refresh", ev.EventType)
	assert.False(t, ev.Success)
	assert.Equal(t, string(auditErrEndpointRejected), ev.Error)
	assert.Equal(t, "rejected", ev.Metadata["reason"])

	ev = nextEvent(t, sink)
	assert.Equal(t, "logout", ev.EventType)
	assert.Equal(t, "refresh_failed", ev.Metadata["reason"])
}

func TestAuditCleanupPurge(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	backend := session.NewMemoryBackend()
	seed(t, backend, DomainAdmin, "not-a-jwt", "", `{"id":"a-1"}`)

	sink := NewChannelSink(16)
	actx := newTestContext(t, srv, backend, withAudit(sink))
	_, err := actx.Start(context.Background())
	require.NoError(t, err)

	ev := nextEvent(t, sink)
	assert.Equal(t, "cleanup_purge", ev.EventType)
	assert.Equal(t, "admin", ev.Domain)
	assert.Equal(t, string(CleanupMalformedToken), ev.Metadata["reason"])
}

func TestJSONWriterSinkThroughContext(t *testing.T) {
	srv := startBackend(t, fakebackend.Options{})
	var buf bytes.Buffer
	actx := startedContext(t, srv, session.NewMemoryBackend(), withAudit(NewJSONWriterSink(&buf)))

	loginAs(t, actx, DomainVendor)
	require.NoError(t, actx.Logout(context.Background(), DomainVendor))
	actx.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ev AuditEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "logout", ev.EventType)
	assert.Equal(t, "vendor", ev.Domain)
}

func TestAuditErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrCredentialsRejected, auditErrCredentialsRejected},
		{ErrNoRefreshToken, auditErrNoRefreshToken},
		{ErrRedisUnavailable, auditErrUnavailable},
		{ErrSessionChanged, auditErrSessionChanged},
		{context.Canceled, auditErrCanceled},
		{assert.AnError, auditErrInternal},
	}
	for _, tt := range tests {
		if got := auditErrorCode(tt.err); got != tt.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
