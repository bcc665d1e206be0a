package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, float64(DefaultThresholdHours), cfg.Compliance.ThresholdHours)
	assert.Equal(t, DefaultRegistrationWorkingDays, cfg.Compliance.RegistrationWorkingDays)
	assert.Equal(t, DefaultAppealWindowDays, cfg.Compliance.AppealWindowDays)
	assert.Equal(t, float64(DefaultMaxFineAmount), cfg.Compliance.MaxFineAmount)
	assert.Equal(t, time.Hour, cfg.Worker.ScanInterval)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9090
	cfg.Compliance.ThresholdHours = 12
	ApplyDefaults(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, float64(12), cfg.Compliance.ThresholdHours)
}

func TestApplyDefaults_NilConfig(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
