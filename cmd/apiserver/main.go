// The apiserver binary serves the lobbyist registration compliance API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	appanalytics "github.com/opencivic/lobbyreg/internal/application/analytics"
	appenf "github.com/opencivic/lobbyreg/internal/application/enforcement"
	apphours "github.com/opencivic/lobbyreg/internal/application/hours"
	appreg "github.com/opencivic/lobbyreg/internal/application/registration"
	appreports "github.com/opencivic/lobbyreg/internal/application/reports"
	"github.com/opencivic/lobbyreg/internal/config"
	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/postgres"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/postgres/repositories"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/redis"
	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/internal/infrastructure/storage/minio"
	httpserver "github.com/opencivic/lobbyreg/internal/interfaces/http"
	"github.com/opencivic/lobbyreg/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting api server", logging.Int("port", cfg.Server.Port))

	// Postgres
	conn, err := postgres.NewConnection(postgres.FromConfig(cfg.Database), log)
	if err != nil {
		log.Fatal("postgres connection failed", logging.Err(err))
	}
	defer conn.Close()
	if cfg.Database.MigrationPath != "" {
		if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
			log.Fatal("migrations failed", logging.Err(err))
		}
	}

	// Redis
	redisClient, err := redis.NewClient(redis.FromConfig(cfg.Redis), log)
	if err != nil {
		log.Fatal("redis connection failed", logging.Err(err))
	}
	defer redisClient.Close()
	cache := redis.NewRedisCache(redisClient, log,
		redis.WithPrefix(cfg.Redis.KeyPrefix),
		redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
	locks := redis.NewLockFactory(redisClient, log)

	// Kafka
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		MaxRetries: cfg.Kafka.ProducerRetries,
		BatchSize:  cfg.Kafka.BatchSize,
	}, log)
	if err != nil {
		log.Fatal("kafka producer failed", logging.Err(err))
	}
	defer producer.Close()

	// MinIO — receipt storage is optional; the reports API degrades to
	// 503 on receipt operations when it is unreachable at startup.
	var receipts minio.ReceiptStore
	if minioClient, err := minio.NewClient(minio.FromConfig(cfg.MinIO), log); err != nil {
		log.Warn("minio unavailable, receipt storage disabled", logging.Err(err))
	} else {
		receipts = minio.NewReceiptStore(minioClient, log)
	}

	// Metrics
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "lobbyreg",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		log.Fatal("metrics collector failed", logging.Err(err))
	}
	metrics := prometheus.NewAppMetrics(collector)

	// Repositories
	db := conn.DB()
	registryRepo := repositories.NewRegistryRepository(db, log)
	hoursRepo := repositories.NewHoursRepository(db, log)
	reportsRepo := repositories.NewReportingRepository(db, log)
	enforcementRepo := repositories.NewEnforcementRepository(db, log)
	analyticsRepo := repositories.NewAnalyticsRepository(db, log)

	// Ordinance policies
	thresholdPolicy := compliance.ThresholdPolicy{
		Hours:                   decimal.NewFromFloat(cfg.Compliance.ThresholdHours),
		RegistrationWorkingDays: cfg.Compliance.RegistrationWorkingDays,
	}
	appealPolicy := compliance.AppealPolicy{WindowDays: cfg.Compliance.AppealWindowDays}

	// Application services
	registrationSvc := appreg.NewService(registryRepo, producer, metrics, log)
	hoursSvc := apphours.NewService(hoursRepo, registryRepo, thresholdPolicy, locks, cache, producer, metrics, log)
	reportsSvc := appreports.NewService(reportsRepo, registryRepo, receipts, producer, metrics, log)
	enforcementSvc := appenf.NewService(enforcementRepo, registryRepo, appealPolicy, producer, metrics, log)
	analyticsSvc := appanalytics.NewService(registryRepo, reportsRepo, enforcementRepo, analyticsRepo, cache, log)

	// HTTP
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Registration: handlers.NewRegistrationHandler(registrationSvc),
		Hours:        handlers.NewHoursHandler(hoursSvc),
		Reports:      handlers.NewReportsHandler(reportsSvc),
		Enforcement:  handlers.NewEnforcementHandler(enforcementSvc),
		Analytics:    handlers.NewAnalyticsHandler(analyticsSvc),
		Health:       handlers.NewHealthHandler(healthCheckers(conn, redisClient)...),
		Logger:       log,
		Metrics:      metrics,
		Collector:    collector,
		Mode:         cfg.Server.Mode,
	})
	server := httpserver.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("server failed", logging.Err(err))
		}
	case sig := <-quit:
		log.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	if err := server.Stop(context.Background()); err != nil {
		log.Error("shutdown failed", logging.Err(err))
	}
	log.Info("server stopped")
}

// loadConfig reads the config file, falling back to environment-only
// configuration when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func newLogger(c config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{Level: c.Level, Format: c.Format})
}
