// Command loader runs the signature cursor and transaction fetcher
// pool: it watches the configured contract keys, discovers their
// signature history, and fetches/stores each transaction's raw encoding.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/gohnnyman/solindexer/internal/config"
	"github.com/gohnnyman/solindexer/internal/logger"
	"github.com/gohnnyman/solindexer/pkg/cursor"
	"github.com/gohnnyman/solindexer/pkg/fetcherpool"
	"github.com/gohnnyman/solindexer/pkg/queue"
	"github.com/gohnnyman/solindexer/pkg/solanarpc"
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
	cfg := config.NewLoaderConfig(flag.CommandLine)
	flag.Parse()

	log := logger.New(*verboseFlag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("loader: received signal", "signal", sig.String())
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

	q, err := queue.Connect(ctx, cfg.QueueStorageDatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to queue storage: %w", err)
	}
	defer q.Close()

	rpc := solanarpc.New(cfg.EndpointURL, log)

	errCh := make(chan error, 1)

	if !cfg.DontLoadSignatures {
		for _, key := range cfg.ContractKeys {
			account, err := solana.PublicKeyFromBase58(key)
			if err != nil {
				return fmt.Errorf("invalid contract key %q: %w", key, err)
			}
			c := cursor.New(log, rpc, q, account, 1000)
			go c.Run(ctx)
		}
	}

	pool := fetcherpool.New(log, rpc, q, cfg.NumberOfThreads, cfg.LoadOnlySuccessfulTransactions, time.Duration(cfg.SignaturesResetStatusPeriodSec)*time.Second)
	go pool.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("loader: shutting down", "reason", ctx.Err())
		return nil
	case err := <-errCh:
		return err
	case err := <-metricsErrCh:
		log.Error("loader: metrics server error causing shutdown", "error", err)
		return err
	}
}
