package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hlckv/internal/config"
	"hlckv/internal/node"
)

type serveFlags struct {
	peers string
	cfg   config.Config
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a node",
	Example: `  hlckv serve --id n1 --listen 127.0.0.1:50051 \
    --peers n2=127.0.0.1:50052,n3=127.0.0.1:50053 --data n1.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		peers, err := config.ParsePeers(serveOpts.peers)
		if err != nil {
			return err
		}
		cfg := serveOpts.cfg
		cfg.Peers = peers
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.cfg.NodeID, "id", "", "node ID (required)")
	f.StringVar(&serveOpts.cfg.ListenAddr, "listen", "127.0.0.1:50051", "gRPC listen address")
	f.StringVar(&serveOpts.peers, "peers", "", "peers as id=addr,id=addr")
	f.StringVar(&serveOpts.cfg.DataPath, "data", "", "SQLite database path (empty keeps data in memory)")
	f.IntVar(&serveOpts.cfg.R, "r", 0, "default read quorum (0 = majority)")
	f.IntVar(&serveOpts.cfg.W, "w", 0, "default write quorum (0 = majority)")
	f.DurationVar(&serveOpts.cfg.MaxOffset, "max-offset", 500*time.Millisecond, "reject remote clocks further ahead than this (0 disables)")
	f.DurationVar(&serveOpts.cfg.RequestTimeout, "replica-timeout", 2*time.Second, "timeout for each replica RPC")
	f.StringVar(&serveOpts.cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = serveCmd.MarkFlagRequired("id")
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	n, err := node.NewNode(cfg, logger, reg)
	if err != nil {
		return err
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- n.Start() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	n.Stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("metrics shutdown", zap.Error(serr))
		}
	}
	if err != nil {
		return fmt.Errorf("node %s: %w", cfg.NodeID, err)
	}
	return nil
}
