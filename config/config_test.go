package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "backup")
	t.Setenv("ADD_PN_URL", "https://pbx.example/api/add-pn")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 5, cfg.Database.PoolSize)
	assert.Equal(t, 5, cfg.Run.LookbackMinutes)
	assert.Equal(t, 5*time.Minute, cfg.Run.Lookback())
	assert.Equal(t, 1, cfg.Run.PNPerPilotPerVN)
	assert.Equal(t, "auto-backup", cfg.Run.ReservedByTag)
	assert.False(t, cfg.Run.StopAfterFirst)
	assert.Equal(t, 24*time.Hour, cfg.Run.OrphanMinAge)
	assert.Equal(t, SourceKindCSV, cfg.Sources.Kind)
	assert.Equal(t, 15*time.Second, cfg.Attach.Timeout)
	assert.Empty(t, cfg.Attach.Headers)
	assert.Equal(t, "[BackupPNs]", cfg.Email.SubjectPrefix)
	assert.True(t, cfg.SMTP.UseTLS)
	assert.Equal(t, "v1", cfg.Schema.Version)
	assert.Empty(t, cfg.Schema.TableOverrides)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "pn_backup:", cfg.Cache.RedisPrefix)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("RUN_LOOKBACK_MINUTES", "0")
	t.Setenv("PN_PER_PILOT_PER_VN", "2")
	t.Setenv("STOP_AFTER_FIRST_SUCCESSFUL_PILOT", "true")
	t.Setenv("SOURCE_KIND", "XLSX")
	t.Setenv("SHEETS_WORKBOOK", "inputs.xlsx")
	t.Setenv("ADD_PN_HEADERS", "Authorization: Bearer abc, X-Tenant:ops,broken, :empty")
	t.Setenv("ADD_PN_TIMEOUT", "3s")
	t.Setenv("SCHEMA_VERSION", "V2")
	t.Setenv("TBL_ASSIGNED", " backup_assignments ")
	t.Setenv("TBL_PRI", "   ")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("RUN_LOCK_TTL", "10m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Zero(t, cfg.Run.Lookback())
	assert.Equal(t, 2, cfg.Run.PNPerPilotPerVN)
	assert.True(t, cfg.Run.StopAfterFirst)
	assert.Equal(t, SourceKindXLSX, cfg.Sources.Kind)
	assert.Equal(t, "inputs.xlsx", cfg.Sources.Workbook)
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc", "X-Tenant": "ops"}, cfg.Attach.Headers)
	assert.Equal(t, 3*time.Second, cfg.Attach.Timeout)
	assert.Equal(t, "v2", cfg.Schema.Version)
	assert.Equal(t, map[string]string{"assignments": "backup_assignments"}, cfg.Schema.TableOverrides)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.RunLockTTL)
}

func TestLoadConfig_UnparsableValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_POOL_SIZE", "many")
	t.Setenv("SMTP_USE_TLS", "maybe")
	t.Setenv("ADD_PN_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Database.PoolSize)
	assert.True(t, cfg.SMTP.UseTLS)
	assert.Equal(t, 15*time.Second, cfg.Attach.Timeout)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Name: "telephony", User: "u", PoolSize: 5, ConnectTimeout: time.Second},
			Run:      RunConfig{LookbackMinutes: 5, PNPerPilotPerVN: 1, ReservedByTag: "auto-backup"},
			Sources:  SourcesConfig{Kind: SourceKindCSV},
			Attach:   AttachConfig{URL: "https://pbx.example", Timeout: time.Second},
			Email:    EmailConfig{AdminTo: "admin@example.com"},
			Logging:  LoggingConfig{Level: "info", RotateMB: 10},
			Schema:   SchemaConfig{Version: "v1"},
		}
	}
	require.NoError(t, ValidateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"sqlite needs no host", func(c *Config) { c.Database = DatabaseConfig{Driver: "sqlite", Name: "pool.db", PoolSize: 1, ConnectTimeout: time.Second} }, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "DB_DRIVER must be one of"},
		{"missing user", func(c *Config) { c.Database.User = "" }, "DB_USER is required"},
		{"negative lookback", func(c *Config) { c.Run.LookbackMinutes = -1 }, "RUN_LOOKBACK_MINUTES"},
		{"zero count", func(c *Config) { c.Run.PNPerPilotPerVN = 0 }, "PN_PER_PILOT_PER_VN must be positive"},
		{"unknown source", func(c *Config) { c.Sources.Kind = "gsheets" }, "SOURCE_KIND"},
		{"missing attach url", func(c *Config) { c.Attach.URL = "" }, "ADD_PN_URL is required"},
		{"missing admin", func(c *Config) { c.Email.AdminTo = "" }, "ADMIN_EMAIL is required"},
		{"bad smtp port", func(c *Config) { c.SMTP = SMTPConfig{Host: "smtp", Port: 0, From: "a@b"} }, "SMTP_PORT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "LOG_LEVEL"},
		{"unknown schema", func(c *Config) { c.Schema.Version = "v3" }, "SCHEMA_VERSION"},
		{"schema file wins", func(c *Config) { c.Schema = SchemaConfig{Version: "custom", File: "schema.yaml"} }, ""},
		{"cache without ttl", func(c *Config) { c.Cache = CacheConfig{Enabled: true, RedisURL: "redis://x"} }, "RUN_LOCK_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateConfig_CollectsAllErrors(t *testing.T) {
	err := ValidateConfig(&Config{})
	require.Error(t, err)
	for _, want := range []string{"DB_DRIVER", "ADD_PN_URL is required", "ADMIN_EMAIL is required", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), want)
	}
}
