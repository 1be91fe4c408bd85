package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: welfare
    user: cswd
workers:
  transition-application:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "CSWD", cfg.Workflow.ReferencePrefix)
	assert.Equal(t, "08:00", cfg.Workflow.InterviewStart)
	assert.Equal(t, "17:00", cfg.Workflow.InterviewEnd)
	assert.Equal(t, 3, cfg.Workflow.UrgentAfterDays)
	assert.Equal(t, 3, cfg.Workflow.DuplicateLookbackMonths)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "assistance-applications", cfg.Search.Index)

	worker := cfg.Workers["transition-application"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
	assert.Equal(t, 3, worker.MaxRetries)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("WELFARE_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
database:
  postgres:
    host: db
    database: welfare
    user: cswd
    password: ${WELFARE_DB_PASSWORD}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "password=s3cret")
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			body:    "database:\n  postgres:\n    database: x\n    user: y\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name: "cache without redis",
			body: `
database:
  postgres: {host: h, database: d, user: u}
cache:
  enabled: true
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "search without elasticsearch",
			body: `
database:
  postgres: {host: h, database: d, user: u}
search:
  enabled: true
`,
			wantErr: "database.elasticsearch.addresses is required",
		},
		{
			name: "camunda without broker",
			body: `
database:
  postgres: {host: h, database: d, user: u}
camunda:
  enabled: true
`,
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "bad interview window",
			body: `
database:
  postgres: {host: h, database: d, user: u}
workflow:
  interview_start: "8am"
`,
			wantErr: "workflow.interview_start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("08:00")
	require.NoError(t, err)
	assert.Equal(t, 480, minutes)

	minutes, err = ParseClock("17:00")
	require.NoError(t, err)
	assert.Equal(t, 1020, minutes)

	_, err = ParseClock("25:61")
	assert.Error(t, err)
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"notify-beneficiary": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "notify-beneficiary"))
	assert.True(t, IsWorkerEnabled(cfg, "submit-application"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "notify-beneficiary").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "submit-application").MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
