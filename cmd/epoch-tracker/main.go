// Command epoch-tracker runs the epoch tracker: it polls the chain's
// current epoch bounds and backfills first/last block data for epochs the
// rewards analyzer still needs.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/gohnnyman/solindexer/internal/config"
	"github.com/gohnnyman/solindexer/internal/logger"
	"github.com/gohnnyman/solindexer/pkg/epochtracker"
	"github.com/gohnnyman/solindexer/pkg/queue"
	"github.com/gohnnyman/solindexer/pkg/solanarpc"
)

// setupEpochsBack is how many prior epochs --setup-epochs backfills in one
// shot before the regular poll/backfill loops take over.
const setupEpochsBack = 10

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.PreloadConfigFile(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	cfg := config.NewEpochTrackerConfig(flag.CommandLine)
	flag.Parse()

	log := logger.New(*verboseFlag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("epoch-tracker: received signal", "signal", sig.String())
		cancel()
	}()

	metricsErrCh := make(chan error, 1)
	go func() {
		listener, err := net.Listen("tcp", cfg.PrometheusBindAddress)
		if err != nil {
			log.Error("failed to start prometheus metrics server listener", "error", err)
			metricsErrCh <- err
			return
		}
		log.Info("prometheus metrics server listening", "address", listener.Addr().String())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.Serve(listener, mux); err != nil {
			log.Error("failed to start prometheus metrics server", "error", err)
			metricsErrCh <- err
		}
	}()

	q, err := queue.Connect(ctx, cfg.StorageURL)
	if err != nil {
		return fmt.Errorf("failed to connect to epoch storage: %w", err)
	}
	defer q.Close()

	rpc := solanarpc.New(cfg.EndpointURL, log)

	tracker, err := epochtracker.New(log, rpc, q)
	if err != nil {
		return fmt.Errorf("failed to create epoch tracker: %w", err)
	}

	if cfg.SetupEpochs {
		log.Info("epoch-tracker: running one-shot historical backfill", "back", setupEpochsBack)
		if err := tracker.SetupEpochs(ctx, setupEpochsBack); err != nil {
			return fmt.Errorf("setup-epochs backfill failed: %w", err)
		}
		return nil
	}

	go tracker.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("epoch-tracker: shutting down", "reason", ctx.Err())
		return nil
	case err := <-metricsErrCh:
		log.Error("epoch-tracker: metrics server error causing shutdown", "error", err)
		return err
	}
}
