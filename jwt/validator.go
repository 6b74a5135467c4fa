package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token is not a decodable three-segment JWT
	// carrying a numeric exp claim.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired is returned when a token's exp is not after the current time.
	ErrExpired = errors.New("token expired")
)

const maxLeeway = 2 * time.Minute

// Reason classifies why a token is unusable.
type Reason uint8

const (
	// ReasonNone means the token is usable.
	ReasonNone Reason = iota
	// ReasonMalformed means the token could not be decoded.
	ReasonMalformed
	// ReasonExpired means the token decoded but exp <= now.
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformed:
		return "malformed"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Claims is the decoded token payload.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Raw       jwt.MapClaims
}

// Result is the outcome of [Validator.Check].
type Result struct {
	Claims *Claims
	Reason Reason
	Err    error
}

// Valid reports whether the checked token is usable.
func (r Result) Valid() bool {
	return r.Reason == ReasonNone
}

// Config controls expiry evaluation.
type Config struct {
	// Leeway extends every token's lifetime to tolerate clock skew.
	Leeway time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Validator decodes tokens and evaluates their expiry. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewValidator returns a Validator for cfg.
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Validator{
		leeway: cfg.Leeway,
		now:    now,
		parser: jwt.NewParser(),
	}, nil
}

// Decode returns the claims carried by token without evaluating expiry.
func (v *Validator) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	// Only the payload is read; header and signature are opaque here.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %d segments", ErrMalformed, len(parts))
	}
	raw, err := v.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	mc := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &mc); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformed)
	}

	claims := &Claims{
		ExpiresAt: exp.Time,
		Raw:       mc,
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	return claims, nil
}

// Check decodes token and evaluates its expiry against the validator clock.
func (v *Validator) Check(token string) Result {
	claims, err := v.Decode(token)
	if err != nil {
		return Result{Reason: ReasonMalformed, Err: err}
	}
	if !v.now().Before(claims.ExpiresAt.Add(v.leeway)) {
		return Result{Claims: claims, Reason: ReasonExpired, Err: ErrExpired}
	}
	return Result{Claims: claims}
}

// IsValid reports whether token is well formed and not yet expired.
func (v *Validator) IsValid(token string) bool {
	return v.Check(token).Valid()
}

// Now returns the validator clock reading.
func (v *Validator) Now() time.Time {
	return v.now()
}
