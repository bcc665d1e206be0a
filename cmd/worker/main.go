// The worker binary runs the periodic compliance scan and serves its
// health and metrics endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appenf "github.com/opencivic/lobbyreg/internal/application/enforcement"
	"github.com/opencivic/lobbyreg/internal/config"
	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/postgres"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/postgres/repositories"
	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/internal/worker"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultProbePort  = 8081
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	probePort := flag.Int("probe-port", defaultProbePort, "health and metrics port")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting compliance scan worker",
		logging.Duration("scan_interval", cfg.Worker.ScanInterval),
		logging.Int("concurrency", cfg.Worker.Concurrency))

	conn, err := postgres.NewConnection(postgres.FromConfig(cfg.Database), log)
	if err != nil {
		log.Fatal("postgres connection failed", logging.Err(err))
	}
	defer conn.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		MaxRetries: cfg.Kafka.ProducerRetries,
		BatchSize:  cfg.Kafka.BatchSize,
	}, log)
	if err != nil {
		log.Fatal("kafka producer failed", logging.Err(err))
	}
	defer producer.Close()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "lobbyreg",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		log.Fatal("metrics collector failed", logging.Err(err))
	}
	metrics := prometheus.NewAppMetrics(collector)

	db := conn.DB()
	registryRepo := repositories.NewRegistryRepository(db, log)
	reportsRepo := repositories.NewReportingRepository(db, log)
	enforcementRepo := repositories.NewEnforcementRepository(db, log)

	appealPolicy := compliance.AppealPolicy{WindowDays: cfg.Compliance.AppealWindowDays}
	enforcementSvc := appenf.NewService(enforcementRepo, registryRepo, appealPolicy, producer, metrics, log)

	scanner := worker.NewScanner(registryRepo, reportsRepo, enforcementSvc, metrics, cfg.Worker.Concurrency, log)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          worker.AuditTopics,
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Worker.MaxRetries,
			RetryBackoff:    cfg.Worker.RetryBackoffMS,
			DeadLetterTopic: kafka.TopicDeadLetterDefault,
		},
	}, log)
	if err != nil {
		log.Fatal("kafka consumer failed", logging.Err(err))
	}
	defer consumer.Close()
	auditor := worker.NewEventAuditor(metrics, log)
	if err := auditor.Attach(consumer); err != nil {
		log.Fatal("audit subscription failed", logging.Err(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		log.Fatal("kafka consumer start failed", logging.Err(err))
	}

	probe := probeServer(*probePort, conn, collector)
	go func() {
		if err := probe.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("probe server failed", logging.Err(err))
		}
	}()

	scanDone := make(chan error, 1)
	go func() { scanDone <- scanner.Run(ctx, cfg.Worker.ScanInterval) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-scanDone:
		if err != nil && err != context.Canceled {
			log.Error("scanner stopped", logging.Err(err))
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := probe.Shutdown(shutdownCtx); err != nil {
		log.Error("probe server shutdown failed", logging.Err(err))
	}
	log.Info("worker stopped")
}

// probeServer serves /healthz and /metrics for the worker process.
func probeServer(port int, conn *postgres.Connection, collector prometheus.MetricsCollector) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.HealthCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", collector.Handler())
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func newLogger(c config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{Level: c.Level, Format: c.Format})
}
