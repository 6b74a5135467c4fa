package goSession

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/identity"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	backend    session.Backend
	httpClient *http.Client
	logger     *zap.Logger
	auditSink  AuditSink
	clock      func() time.Time

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Endpoints.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Endpoints.BaseURL = baseURL
	return b
}

// WithRedis stores credentials in Redis through client. The client is not
// closed by AuthContext.Close.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	b.config.Store.Backend = StoreRedis
	return b
}

// WithBackend stores credentials in backend, overriding Store.Backend.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the client whose transport carries both the token
// endpoint calls and the pipeline's outbound requests.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithLogger sets the logger. Without one a logger is built from Logging.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. When audit is enabled without a
// sink, events are logged.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source used for token expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-memory counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles an AuthContext. The
// returned context is not started.
func (b *Builder) Build() (*AuthContext, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	logger := b.logger
	if logger == nil {
		l, err := newLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	// -------- TOKEN VALIDATOR --------
	validator, err := jwt.NewValidator(jwt.Config{
		Leeway: cfg.JWT.Leeway,
		Now:    clock,
	})
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIAL STORE --------
	backend := b.backend
	var ownedRedis redis.UniversalClient
	if backend == nil {
		switch cfg.Store.Backend {
		case StoreRedis:
			client := b.redis
			if client == nil {
				if len(cfg.Store.RedisAddrs) == 0 {
					return nil, errors.New("redis store requires a client or Store RedisAddrs")
				}
				ownedRedis = redis.NewUniversalClient(&redis.UniversalOptions{
					Addrs: cfg.Store.RedisAddrs,
				})
				client = ownedRedis
			}
			backend = session.NewRedisBackend(client, cfg.Store.RedisPrefix, cfg.Store.KeyTTL)
		default:
			backend = session.NewMemoryBackend()
		}
	}
	store := session.NewTokenStore(backend)

	// -------- TOKEN ENDPOINTS --------
	base := http.DefaultTransport
	if b.httpClient != nil && b.httpClient.Transport != nil {
		base = b.httpClient.Transport
	}
	endpoint, err := refresh.NewClient(refresh.Config{
		BaseURL:     cfg.Endpoints.BaseURL,
		LoginPath:   cfg.Endpoints.LoginPath,
		RefreshPath: cfg.Endpoints.RefreshPath,
		Timeout:     cfg.Endpoints.Timeout,
	}, &http.Client{
		Transport: base,
		Timeout:   cfg.Endpoints.Timeout,
	})
	if err != nil {
		if ownedRedis != nil {
			_ = ownedRedis.Close()
		}
		return nil, err
	}

	a := &AuthContext{
		config:    cloneConfig(cfg),
		logger:    logger,
		validator: validator,
		store:     store,
		user:      session.NewState(identity.DomainUser, store, validator),
		vendor:    session.NewState(identity.DomainVendor, store, validator),
		admin:     session.NewState(identity.DomainAdmin, store, validator),
		endpoint:  endpoint,
		metrics:   NewMetrics(cfg.Metrics),
		clock:     clock,
		redis:     ownedRedis,
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewZapSink(logger)
	}
	a.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	// -------- REQUEST PIPELINE --------
	a.pipeline = transport.NewPipeline(authority{a: a}, transport.Config{
		Base:            base,
		RequestIDHeader: cfg.Transport.RequestIDHeader,
		Logger:          logger.Named("transport"),
		Hooks: transport.Hooks{
			OnUnauthorized: func(identity.Domain) { a.metricInc(MetricUnauthorizedResponse) },
			OnCoalesced:    func(identity.Domain) { a.metricInc(MetricRefreshCoalesced) },
			OnRetry:        func(identity.Domain, int) { a.metricInc(MetricRequestRetried) },
		},
	})

	b.built = true

	return a, nil
}
