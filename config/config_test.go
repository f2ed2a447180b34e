package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/config"
	"github.com/sagarc03/runstore/database"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Load with no config files should use defaults
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.False(t, cfg.Server.ReadOnly)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, database.DefaultSQLiteFile, cfg.Database.SQLite.FileName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.CORS.Enabled)

	require.NotNil(t, cfg.Backend())
	assert.Equal(t, database.FamilySQLite, cfg.Backend().Family())
	assert.Equal(t, database.DefaultLocation, cfg.Backend().DefaultLocation())
}

func TestLoad_ConfigFile(t *testing.T) {
	configPath := writeConfig(t, "runstore.yaml", `
server:
  host: 0.0.0.0
  port: 8080
  read_only: true
  shutdown_timeout: 30s
database:
  type: postgres
  postgres:
    host: db.internal
    port: 6432
    user: runstore
    dbname: runs
    max_conns: 4
    health_check_period: 1m
log:
  level: debug
  format: json
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.ReadOnly)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 6432, cfg.Database.Postgres.Port)
	assert.Equal(t, int32(4), cfg.Database.Postgres.MaxConns)
	assert.Equal(t, time.Minute, cfg.Database.Postgres.HealthCheckPeriod)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	d, err := cfg.Backend().Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.internal:6432/runs", d.Key)
	assert.Equal(t, 4, d.MaxOpenConns)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	basePath := writeConfig(t, "base.yaml", `
server:
  port: 5000
database:
  type: sqlite
  location: /srv/runs
log:
  level: info
`)
	overridePath := writeConfig(t, "override.yaml", `
server:
  port: 9000
log:
  level: warn
`)

	// Load with merge (later files override earlier)
	cfg, err := config.Load([]string{basePath, overridePath}, nil)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	// Preserved values from base
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "/srv/runs", cfg.Database.Location)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "invalid port",
			content: `
server:
  port: 99999
`,
		},
		{
			name: "invalid database type",
			content: `
database:
  type: mysql
`,
		},
		{
			name: "invalid log level",
			content: `
log:
  level: verbose
`,
		},
		{
			name: "invalid log format",
			content: `
log:
  format: xml
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, "runstore.yaml", tt.content)

			_, err := config.Load([]string{configPath}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_PostgresMissingParameters(t *testing.T) {
	configPath := writeConfig(t, "runstore.yaml", `
database:
  type: postgres
  postgres:
    host: db.internal
`)

	_, err := config.Load([]string{configPath}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, runstore.ErrConfiguration)
	assert.Contains(t, err.Error(), "user")
}

func TestLoad_WithCORS(t *testing.T) {
	configPath := writeConfig(t, "runstore.yaml", `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - PUT
  allowed_headers:
    - Content-Type
  max_age: 600
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "PUT"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("RUNSTORE_SERVER_PORT", "9090")
	t.Setenv("RUNSTORE_DATABASE_TYPE", "postgres")
	t.Setenv("RUNSTORE_DATABASE_POSTGRES_HOST", "localhost")
	t.Setenv("RUNSTORE_DATABASE_POSTGRES_USER", "runstore")
	t.Setenv("RUNSTORE_DATABASE_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("RUNSTORE_DATABASE_LOCATION", "runs")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, "runs", cfg.Backend().DefaultLocation())
}

func TestLoad_Flags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db-type", "sqlite", "")
	flags.String("location", "", "")
	flags.Int("port", 5000, "")
	flags.Bool("read-only", false, "")
	require.NoError(t, flags.Parse([]string{"--location", "/tmp/exp", "--port", "7000", "--read-only"}))

	t.Setenv("RUNSTORE_SERVER_PORT", "9090")

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port, "flags override env")
	assert.True(t, cfg.Server.ReadOnly)
	assert.Equal(t, "/tmp/exp", cfg.Database.Location)
	assert.Equal(t, "sqlite", cfg.Database.Type, "unset flags keep lower layers")
}

func TestFromContext_Missing(t *testing.T) {
	_, err := config.FromContext(context.Background())
	assert.Error(t, err)
}
