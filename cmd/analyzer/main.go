// Command analyzer runs the transaction parser/delegation/collector
// pipeline: it claims unparsed transactions from the queue and fans out
// their decoded rows into the columnar store.
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
	"github.com/gohnnyman/solindexer/pkg/analyzer"
	"github.com/gohnnyman/solindexer/pkg/collector"
	"github.com/gohnnyman/solindexer/pkg/mainstorage"
	"github.com/gohnnyman/solindexer/pkg/queue"
)

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
	cfg := config.NewAnalyzerConfig(flag.CommandLine)
	flag.Parse()

	log := logger.New(*verboseFlag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("analyzer: received signal", "signal", sig.String())
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

	q, err := queue.Connect(ctx, cfg.QueueStorageURL)
	if err != nil {
		return fmt.Errorf("failed to connect to queue storage: %w", err)
	}
	defer q.Close()

	writer, err := mainstorage.New(ctx, log, cfg.MainStorageDatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to main storage: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error("failed to close main storage writer", "error", err)
		}
	}()

	col := collector.New(ctx, log, writer)
	erroneous := collector.NewErroneousTransactionsCollector(ctx, log, writer)

	worker := analyzer.New(log, q, col, erroneous)
	go worker.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("analyzer: shutting down", "reason", ctx.Err())
		return nil
	case err := <-metricsErrCh:
		log.Error("analyzer: metrics server error causing shutdown", "error", err)
		return err
	}
}
