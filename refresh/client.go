package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/identity"
)

var (
	// ErrRejected is matched by errors for non-2xx endpoint replies.
	ErrRejected = errors.New("token endpoint rejected request")
	// ErrTransport wraps network failures talking to the endpoint.
	ErrTransport = errors.New("token endpoint unreachable")
	// ErrDecode is returned when a 2xx reply carries no usable token.
	ErrDecode = errors.New("token endpoint reply undecodable")
	// ErrInvalidConfig is returned by NewClient for unusable endpoint settings.
	ErrInvalidConfig = errors.New("invalid token endpoint configuration")
)

const (
	// DomainPlaceholder is replaced by the domain name in endpoint paths.
	DomainPlaceholder = "{domain}"

	DefaultLoginPath   = "/{domain}/login"
	DefaultRefreshPath = "/{domain}/refresh-token"

	maxReplyBytes = 1 << 20
)

// Config locates the backend token endpoints.
type Config struct {
	BaseURL     string
	LoginPath   string
	RefreshPath string
	Timeout     time.Duration
}

// TokenResponse is the body returned by login and refresh endpoints.
// RefreshToken and Principal may be absent on refresh.
type TokenResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	Principal    json.RawMessage `json:"principal,omitempty"`
}

// HasPrincipal reports whether the reply carried a non-null principal.
func (r *TokenResponse) HasPrincipal() bool {
	p := bytes.TrimSpace(r.Principal)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// StatusError is returned for non-2xx endpoint replies.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrRejected
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Client calls the backend token endpoints. It is safe for concurrent use.
type Client struct {
	http        *http.Client
	base        *url.URL
	loginPath   string
	refreshPath string
}

// NewClient returns a Client for cfg. httpClient must not route through the
// authenticated pipeline; when nil a client with cfg.Timeout is created.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		http:        httpClient,
		base:        base,
		loginPath:   cfg.LoginPath,
		refreshPath: cfg.RefreshPath,
	}
	if c.loginPath == "" {
		c.loginPath = DefaultLoginPath
	}
	if c.refreshPath == "" {
		c.refreshPath = DefaultRefreshPath
	}
	return c, nil
}

// LoginURL returns the login endpoint for d.
func (c *Client) LoginURL(d identity.Domain) string {
	return c.endpoint(c.loginPath, d)
}

// RefreshURL returns the refresh endpoint for d.
func (c *Client) RefreshURL(d identity.Domain) string {
	return c.endpoint(c.refreshPath, d)
}

func (c *Client) endpoint(path string, d identity.Domain) string {
	return c.base.JoinPath(strings.ReplaceAll(path, DomainPlaceholder, string(d))).String()
}

// Login posts credentials (any JSON-encodable value) to the login endpoint of d.
func (c *Client) Login(ctx context.Context, d identity.Domain, credentials any) (*TokenResponse, error) {
	if !d.Valid() {
		return nil, identity.ErrUnknownDomain
	}
	return c.post(ctx, c.LoginURL(d), credentials)
}

// Refresh exchanges refreshToken for a new token at the refresh endpoint of d.
func (c *Client) Refresh(ctx context.Context, d identity.Domain, refreshToken string) (*TokenResponse, error) {
	if !d.Valid() {
		return nil, identity.ErrUnknownDomain
	}
	return c.post(ctx, c.RefreshURL(d), refreshRequest{RefreshToken: refreshToken})
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (*TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReplyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	var out TokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, fmt.Errorf("%w: missing token", ErrDecode)
	}
	return &out, nil
}
