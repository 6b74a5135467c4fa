// Command session-loadtest drives concurrent authenticated requests through an
// AuthContext against an in-process token backend and reports latency and
// refresh coalescing.
//
// Every --expire-every requests the backend revokes the live token, so the
// next wave of requests meets a 401 herd that must collapse into one refresh.
//
// Run:
//
//	go run ./cmd/session-loadtest --concurrency 128 --ops 50000
//	go run ./cmd/session-loadtest run --store redis --redis-addr 127.0.0.1:6379
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := defaultOptions()

	root := &cobra.Command{
		Use:   "session-loadtest",
		Short: "Load test the request pipeline and refresh coalescing",
		Long: `session-loadtest logs one vendor in against an in-process token backend,
then fans requests out over concurrent workers through the session-aware HTTP
client while periodically revoking the live token.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	bindFlags(root, &opts)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the load test (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	bindFlags(runCmd, &opts)
	root.AddCommand(runCmd)

	return root
}

func bindFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.IntVar(&opts.concurrency, "concurrency", opts.concurrency, "number of concurrent workers")
	f.IntVar(&opts.ops, "ops", opts.ops, "total requests to send")
	f.IntVar(&opts.expireEvery, "expire-every", opts.expireEvery, "revoke the live token every N requests (0 disables)")
	f.DurationVar(&opts.refreshDelay, "refresh-delay", opts.refreshDelay, "latency injected into every refresh exchange")
	f.StringVar(&opts.store, "store", opts.store, "credential store: memory or redis")
	f.StringVar(&opts.redisAddr, "redis-addr", opts.redisAddr, "redis address; if empty with --store redis, REDIS_ADDR env or miniredis is used")
	f.StringVar(&opts.configPath, "config", opts.configPath, "optional YAML config file")
	f.BoolVar(&opts.verbose, "verbose", opts.verbose, "log at debug level")
}
