package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goSession/identity"
)

// DefaultRequestIDHeader is used when Config.RequestIDHeader is empty.
const DefaultRequestIDHeader = "X-Request-ID"

// Authority supplies credentials to the pipeline.
type Authority interface {
	// Ready returns a non-nil error while the pipeline must refuse requests.
	Ready() error
	// Role is the current role, resolved on every request.
	Role() identity.Role
	// BearerToken returns the token held for d.
	BearerToken(d identity.Domain) (string, bool)
	// Reauthenticate renews the token of d after stale was answered with 401.
	// On failure the domain must be left logged out, unless it was logged
	// out or logged in again while the renewal ran.
	Reauthenticate(ctx context.Context, d identity.Domain, stale string) (string, error)
}

// Hooks are optional observation callbacks.
type Hooks struct {
	OnUnauthorized func(d identity.Domain)
	OnCoalesced    func(d identity.Domain)
	OnRetry        func(d identity.Domain, status int)
}

// Config configures a Pipeline.
type Config struct {
	// Base performs the actual requests. Defaults to http.DefaultTransport.
	Base            http.RoundTripper
	RequestIDHeader string
	Logger          *zap.Logger
	Hooks           Hooks
}

// Pipeline attaches credentials and renews them on 401. It is safe for
// concurrent use.
type Pipeline struct {
	auth     Authority
	base     http.RoundTripper
	idHeader string
	logger   *zap.Logger
	hooks    Hooks
	flights  singleflight.Group
	client   *http.Client
}

// NewPipeline returns a Pipeline backed by auth.
func NewPipeline(auth Authority, cfg Config) *Pipeline {
	p := &Pipeline{
		auth:     auth,
		base:     cfg.Base,
		idHeader: cfg.RequestIDHeader,
		logger:   cfg.Logger,
		hooks:    cfg.Hooks,
	}
	if p.base == nil {
		p.base = http.DefaultTransport
	}
	if p.idHeader == "" {
		p.idHeader = DefaultRequestIDHeader
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.client = &http.Client{Transport: p}
	return p
}

// Client returns an http.Client whose transport is p.
func (p *Pipeline) Client() *http.Client {
	return p.client
}

// Do sends req through the pipeline.
func (p *Pipeline) Do(req *http.Request) (*http.Response, error) {
	return p.client.Do(req)
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := p.auth.Ready(); err != nil {
		closeBody(req)
		return nil, err
	}

	ctx := req.Context()
	getBody, err := replayable(req)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}

	reqID := req.Header.Get(p.idHeader)
	if reqID == "" {
		if id, ok := RequestIDFromContext(ctx); ok {
			reqID = id
		} else {
			reqID = uuid.NewString()
		}
	}

	d, authenticated := p.auth.Role().Domain()
	var token string
	if authenticated {
		token, authenticated = p.auth.BearerToken(d)
	}

	resp, err := p.send(req, getBody, reqID, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !authenticated {
		return resp, err
	}

	log := p.logger.With(zap.String("domain", string(d)), zap.String("request_id", reqID))
	log.Debug("request unauthorized, reauthenticating", zap.Int("status", resp.StatusCode))
	if p.hooks.OnUnauthorized != nil {
		p.hooks.OnUnauthorized(d)
	}

	fresh, err := p.reauthenticate(ctx, d, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			drain(resp)
			return nil, ctxErr
		}
		log.Warn("reauthentication failed", zap.Error(err))
		return resp, nil
	}

	drain(resp)
	retry, err := p.send(req, getBody, reqID, fresh)
	if err == nil && p.hooks.OnRetry != nil {
		p.hooks.OnRetry(d, retry.StatusCode)
	}
	return retry, err
}

func (p *Pipeline) send(req *http.Request, getBody func() (io.ReadCloser, error), reqID, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	out.Header.Set(p.idHeader, reqID)
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return p.base.RoundTrip(out)
}

// reauthenticate joins the in-flight renewal of d or starts one. The renewal
// runs detached from ctx so an abandoning caller does not fail the others.
func (p *Pipeline) reauthenticate(ctx context.Context, d identity.Domain, stale string) (string, error) {
	leader := false
	ch := p.flights.DoChan(string(d), func() (any, error) {
		leader = true
		return p.auth.Reauthenticate(context.WithoutCancel(ctx), d, stale)
	})

	select {
	case res := <-ch:
		if !leader && p.hooks.OnCoalesced != nil {
			p.hooks.OnCoalesced(d)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// replayable returns a body factory for req, buffering the body when the
// request cannot produce it again. It returns nil for bodiless requests.
func replayable(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		closeBody(req)
		return req.GetBody, nil
	}

	buf, err := io.ReadAll(req.Body)
	closeBody(req)
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
