package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/warehouse-gateway/internal/config"
	"github.com/malbeclabs/warehouse-gateway/internal/metrics"
	"github.com/malbeclabs/warehouse-gateway/internal/server"
	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
	"github.com/malbeclabs/warehouse-gateway/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr      = "0.0.0.0:8000"
	defaultMetricsAddr     = "0.0.0.0:0"
	defaultConnectAttempts = 1
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "serve pprof handlers under /debug on the listen address")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics (empty to disable)")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP server listen address")
	roleFlag := flag.String("role", config.DefaultRole, "Snowflake role assumed by every session")
	queryTimeoutFlag := flag.Duration("query-timeout", 0, "timeout for each warehouse operation (0 for none)")
	connectAttemptsFlag := flag.Uint("connect-attempts", defaultConnectAttempts, "connect attempts per request before failing")
	strictStatusFlag := flag.Bool("strict-status", false, "return error status codes for failed envelopes instead of 200")
	corsOriginsFlag := flag.String("cors-origins", "", "comma-separated list of allowed CORS origins")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("server: received signal", "signal", sig.String())
		cancel()
	}()

	log.Info("warehouse-gateway: starting",
		"version", version,
		"commit", commit,
		"date", date,
		"config", config.LoadFromEnv(*roleFlag).Redacted(),
	)

	manager, err := warehouse.NewManager(warehouse.ManagerConfig{
		Logger:          log,
		Config:          config.Provider(*roleFlag),
		Opener:          warehouse.SnowflakeOpener,
		ConnectAttempts: *connectAttemptsFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create warehouse manager: %w", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Error("failed to close warehouse connection", "error", err)
		}
	}()

	gateway, err := warehouse.NewGateway(warehouse.GatewayConfig{
		Logger:       log,
		Manager:      manager,
		Clock:        clockwork.NewRealClock(),
		QueryTimeout: *queryTimeoutFlag,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("failed to create warehouse gateway: %w", err)
	}

	srv, err := server.New(server.Config{
		Logger:       log,
		Gateway:      gateway,
		Version:      version,
		ListenAddr:   *listenAddrFlag,
		StrictStatus: *strictStatusFlag,
		CORSOrigins:  splitList(*corsOriginsFlag),
		EnablePprof:  *enablePprofFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		listener, err := net.Listen("tcp", *metricsAddrFlag)
		if err != nil {
			return fmt.Errorf("failed to start prometheus metrics server listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		log.Info("prometheus metrics server listening", "address", listener.Addr().String())

		g.Go(func() error {
			if err := metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve prometheus metrics: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server: stopped")
	return nil
}

func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
