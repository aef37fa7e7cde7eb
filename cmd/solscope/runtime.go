package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/brojonat/solscope/service/account"
	"github.com/brojonat/solscope/service/config"
	"github.com/brojonat/solscope/service/display"
	"github.com/brojonat/solscope/service/metadata"
	"github.com/brojonat/solscope/service/metrics"
	"github.com/brojonat/solscope/service/solana"
	"github.com/brojonat/solscope/service/transaction"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// runtime holds the components built once per command invocation.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	programs solana.Programs
	client   *solana.Client
	out      *output

	stopMetrics context.CancelFunc
}

// newRuntime loads configuration, applies flag overrides and wires the node
// client. Callers must call close.
func newRuntime(c *cli.Context) (*runtime, error) {
	var opts []config.LoadOption
	if c.IsSet("url") {
		opts = append(opts, config.WithRPCURL(c.String("url")))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.LogLevel, c.String("log-format"))

	w := c.App.Writer
	width := display.DefaultWidth
	if f, ok := w.(*os.File); ok {
		width = display.TerminalWidth(f)
	}
	out, err := newOutput(w, c.String("output"), c.String("jq"), width)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	rt := &runtime{
		cfg:         cfg,
		logger:      logger,
		metrics:     m,
		programs:    solana.DefaultPrograms(),
		out:         out,
		stopMetrics: func() {},
	}
	rt.client = solana.NewClient(solana.NewRPCClient(cfg.RPCURL), cfg.RPCURL, m, logger).
		WithCommitment(rpc.CommitmentType(cfg.Commitment))

	if cfg.MetricsAddr != "" {
		ctx, cancel := context.WithCancel(c.Context)
		rt.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, metrics.Handler(m, registry), logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Debug("runtime initialized",
		"rpc_url", cfg.RPCURL,
		"commitment", cfg.Commitment,
		"metadata_sources", cfg.MetadataSources,
	)
	return rt, nil
}

// applyFlags overrides environment configuration with explicitly set flags.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("commitment") {
		cfg.Commitment = c.String("commitment")
	}
	if c.IsSet("metadata-source") {
		cfg.MetadataSources = c.StringSlice("metadata-source")
	}
	if c.IsSet("metadata-concurrency") {
		cfg.MetadataConcurrency = c.Int("metadata-concurrency")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
}

func (rt *runtime) close() {
	rt.stopMetrics()
}

func (rt *runtime) inspector() (*account.Inspector, error) {
	sources, err := metadata.NewSources(rt.cfg.MetadataSources, rt.client, rt.programs)
	if err != nil {
		return nil, fmt.Errorf("metadata sources: %w", err)
	}
	symbols := metadata.NewResolver(sources, rt.metrics, rt.logger)
	return account.NewInspector(rt.client, rt.programs, symbols, rt.cfg.MetadataConcurrency, rt.logger), nil
}

func (rt *runtime) resolver() *transaction.Resolver {
	return transaction.NewResolver(rt.client, rt.metrics, rt.logger)
}
