package main

import (
	"context"

	"github.com/opencivic/lobbyreg/internal/infrastructure/database/postgres"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/redis"
	"github.com/opencivic/lobbyreg/internal/interfaces/http/handlers"
)

// healthCheckers wires the readiness probes for the hard dependencies.
// MinIO is deliberately excluded: receipt storage is optional and its
// absence must not mark the service unready.
func healthCheckers(conn *postgres.Connection, redisClient *redis.Client) []handlers.HealthChecker {
	return []handlers.HealthChecker{
		{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return conn.HealthCheck(ctx) },
		},
		{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx) },
		},
	}
}
