package main

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eurotz/tzgate/pkg/log"
	"github.com/eurotz/tzgate/pkg/sign"
	"github.com/eurotz/tzgate/pkg/tzrpc"
)

//go:embed config/migrations/*/*.sql
var embedMigrations embed.FS

func main() {
	logger := log.NewZapLogger(bootstrapLogConfig()).WithName("tzgate")
	if len(os.Args) > 1 {
		// If a CLI command is provided, run it and exit
		runCli(logger, os.Args[1:])
		return
	}

	config, err := LoadConfig(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	logger = log.NewZapLogger(config.Log).WithName("tzgate")

	db, err := ConnectToDB(config.DB, logger)
	if err != nil {
		logger.Fatal("failed to setup database", "error", err)
	}

	var (
		signer        sign.Signer
		signerAddress string
	)
	if config.SecretKey != "" {
		signer, err = sign.NewSignerFromEncoded(config.SecretKey)
		if err != nil {
			logger.Fatal("failed to initialise signer", "error", err)
		}
		signerAddress = signer.PublicKey().Address().String()
		logger.Info("signer initialized", "address", signerAddress, "type", signer.PublicKey().Type())
	} else {
		logger.Warn("no secret key configured, signing endpoints are disabled")
	}

	client := tzrpc.NewClient(config.Node, logger)
	ledger := tzrpc.NewLedger(client, config.Ledger.BigMapID, config.Ledger.Contract)

	metrics := NewMetrics()
	feed := NewSignatureFeed(metrics, logger)
	authManager := NewAuthManager(config.Auth)
	if authManager == nil {
		logger.Warn("no auth secret configured, signing endpoints are open")
	}

	api := NewAPI(signer, ledger, NewSignatureLogStore(db), feed, authManager, metrics, config.Ledger.Decimals, logger)
	apiServer := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsEndpoint := "/metrics"
	// Set up a separate mux for metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle(metricsEndpoint, promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              config.MetricsListenAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	go metrics.RecordMetricsPeriodically(ctx, db, ledger, signerAddress, logger)

	go func() {
		logger.Info("Prometheus metrics available", "listenAddr", config.MetricsListenAddr, "endpoint", metricsEndpoint)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failure", "error", err)
		}
	}()

	go func() {
		logger.Info("API server available", "listenAddr", config.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API server failure", "error", err)
		}
	}()

	// Wait for shutdown signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopMetrics()
	feed.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down metrics server", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down API server", "error", err)
	}

	logger.Info("shutdown complete")
}

// bootstrapLogConfig reads the log settings from the environment before the
// full configuration is loaded.
func bootstrapLogConfig() log.Config {
	var conf log.Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return log.Config{Format: "console", Level: log.LevelInfo, Output: "stderr"}
	}
	return conf
}
