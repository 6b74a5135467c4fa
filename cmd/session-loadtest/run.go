package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/fakebackend"
)

type options struct {
	concurrency  int
	ops          int
	expireEvery  int
	refreshDelay time.Duration
	store        string
	redisAddr    string
	configPath   string
	verbose      bool
}

func defaultOptions() options {
	return options{
		concurrency:  64,
		ops:          20000,
		expireEvery:  2000,
		refreshDelay: 20 * time.Millisecond,
		store:        string(goSession.StoreMemory),
	}
}

func (o options) validate() error {
	if o.concurrency <= 0 || o.ops <= 0 {
		return errors.New("concurrency and ops must be > 0")
	}
	if o.expireEvery < 0 {
		return errors.New("expire-every must be >= 0")
	}
	switch goSession.StoreBackend(o.store) {
	case goSession.StoreMemory, goSession.StoreRedis:
	default:
		return fmt.Errorf("unknown store %q", o.store)
	}
	return nil
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	srv := fakebackend.Start(fakebackend.Options{
		TokenTTL:     time.Hour,
		RefreshDelay: opts.refreshDelay,
	})
	defer srv.Close()

	cfg := goSession.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := goSession.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Endpoints.BaseURL = srv.URL
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	level := zap.InfoLevel
	if opts.verbose {
		level = zap.DebugLevel
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b := goSession.New().WithConfig(cfg).WithLogger(logger)

	if goSession.StoreBackend(opts.store) == goSession.StoreRedis {
		client, cleanup, err := openRedis(out, opts.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()
		b = b.WithRedis(client)
	}

	actx, err := b.Build()
	if err != nil {
		return err
	}
	defer actx.Close()

	if _, err := actx.Start(ctx); err != nil {
		return err
	}
	if _, err := actx.Login(ctx, goSession.DomainVendor, map[string]string{
		"email":    "loadtest@example.com",
		"password": fakebackend.Password,
	}); err != nil {
		return err
	}

	fmt.Fprintf(out, "sending %d requests over %d workers (expire every %d)\n", opts.ops, opts.concurrency, opts.expireEvery)
	stats := runRequestPhase(ctx, actx, srv, opts)

	snap := actx.MetricsSnapshot()
	fmt.Fprintln(out, "---- results ----")
	printStats(out, "requests", stats)
	fmt.Fprintf(out, "refresh: endpoint_calls=%d success=%d failure=%d coalesced=%d skipped=%d retried=%d\n",
		srv.RefreshCalls(goSession.DomainVendor),
		snap.Counters[goSession.MetricRefreshSuccess],
		snap.Counters[goSession.MetricRefreshFailure],
		snap.Counters[goSession.MetricRefreshCoalesced],
		snap.Counters[goSession.MetricRefreshSkipped],
		snap.Counters[goSession.MetricRequestRetried],
	)
	fmt.Fprintf(out, "role after run: %s\n", actx.Role())
	return nil
}

func openRedis(out io.Writer, addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runRequestPhase(ctx context.Context, actx *goSession.AuthContext, srv *fakebackend.Server, opts options) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	client := actx.HTTPClient()
	url := srv.URL + "/api/bookings"

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.ops || ctx.Err() != nil {
					return
				}
				if opts.expireEvery > 0 && i > 0 && i%opts.expireEvery == 0 {
					srv.Expire(goSession.DomainVendor)
				}

				t0 := time.Now()
				ok := send(ctx, client, url)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func send(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
