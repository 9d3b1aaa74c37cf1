// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/pn-backup/utils"
	"github.com/joho/godotenv"
)

// Source kinds
const (
	SourceKindCSV  = "csv"
	SourceKindXLSX = "xlsx"
)

// Config holds all configuration for a backup run
type Config struct {
	Database DatabaseConfig `json:"database"`
	Run      RunConfig      `json:"run"`
	Sources  SourcesConfig  `json:"sources"`
	Attach   AttachConfig   `json:"attach"`
	SMTP     SMTPConfig     `json:"smtp"`
	Email    EmailConfig    `json:"email"`
	Logging  LoggingConfig  `json:"logging"`
	Schema   SchemaConfig   `json:"schema"`
	Metrics  MetricsConfig  `json:"metrics"`
	Cache    CacheConfig    `json:"cache"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver"` // mysql, postgres, sqlite
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	ConnectTimeout  time.Duration `json:"connect_timeout"`
	PoolSize        int           `json:"pool_size"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type RunConfig struct {
	LookbackMinutes int           `json:"lookback_minutes"`
	PNPerPilotPerVN int           `json:"pn_per_pilot_per_vn"`
	ReservedByTag   string        `json:"reserved_by_tag"`
	StopAfterFirst  bool          `json:"stop_after_first_successful_pilot"`
	OrphanMinAge    time.Duration `json:"orphan_min_age"`
}

// Lookback returns the configured lookback as a duration
func (r RunConfig) Lookback() time.Duration {
	return time.Duration(r.LookbackMinutes) * time.Minute
}

// SourcesConfig selects the tabular input for accounts, tenant exceptions and region preferences
type SourcesConfig struct {
	Kind string `json:"kind"` // csv, xlsx

	CSVAccounts          string `json:"csv_accounts"`
	CSVTenantExceptions  string `json:"csv_tenant_exceptions"`
	CSVRegionPreferences string `json:"csv_region_preferences"`

	Workbook               string `json:"workbook"`
	SheetAccounts          string `json:"sheet_accounts"`
	SheetTenantExceptions  string `json:"sheet_tenant_exceptions"`
	SheetRegionPreferences string `json:"sheet_region_preferences"`
}

type AttachConfig struct {
	URL     string            `json:"url"`
	Timeout time.Duration     `json:"timeout"`
	Headers map[string]string `json:"headers"`
}

type SMTPConfig struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	From     string        `json:"from"`
	UseTLS   bool          `json:"use_tls"`
	Timeout  time.Duration `json:"timeout"`
}

type EmailConfig struct {
	AdminTo       string `json:"admin_to"`
	SubjectPrefix string `json:"subject_prefix"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, console
	Dir        string `json:"dir"`
	RotateMB   int    `json:"rotate_mb"`
	MaxBackups int    `json:"max_backups"`
}

// SchemaConfig selects the query shape used against the pool store
type SchemaConfig struct {
	Version        string            `json:"version"` // v1, v2
	File           string            `json:"file"`
	TableOverrides map[string]string `json:"table_overrides"`
}

type MetricsConfig struct {
	PushgatewayURL string `json:"pushgateway_url"`
	JobName        string `json:"job_name"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	RunLockTTL  time.Duration `json:"run_lock_ttl"`
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win over file values
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnvString("DB_DRIVER", "mysql")),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 3306),
			Name:            getEnvString("DB_NAME", "telephony"),
			User:            getEnvString("DB_USER", ""),
			Password:        getEnvString("DB_PASS", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", utils.DBConnectTimeout),
			PoolSize:        getEnvInt("DB_POOL_SIZE", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Run: RunConfig{
			LookbackMinutes: getEnvInt("RUN_LOOKBACK_MINUTES", utils.DefaultLookbackMinutes),
			PNPerPilotPerVN: getEnvInt("PN_PER_PILOT_PER_VN", utils.DefaultPNPerPilotPerVN),
			ReservedByTag:   getEnvString("RESERVED_BY_TAG", utils.DefaultReservedByTag),
			StopAfterFirst:  getEnvBool("STOP_AFTER_FIRST_SUCCESSFUL_PILOT", false),
			OrphanMinAge:    getEnvDuration("ORPHAN_MIN_AGE", utils.DefaultOrphanMinAge),
		},
		Sources: SourcesConfig{
			Kind:                   strings.ToLower(getEnvString("SOURCE_KIND", SourceKindCSV)),
			CSVAccounts:            getEnvString("CSV_ACCOUNTS", "data/accounts.csv"),
			CSVTenantExceptions:    getEnvString("CSV_TENANT_EXCEPTIONS", "data/tenant_exceptions.csv"),
			CSVRegionPreferences:   getEnvString("CSV_REGION_PREFERENCES", "data/region_preferences.csv"),
			Workbook:               getEnvString("SHEETS_WORKBOOK", ""),
			SheetAccounts:          getEnvString("SHEETS_ACCOUNTS", "Accounts"),
			SheetTenantExceptions:  getEnvString("SHEETS_TENANT_EXCEPTIONS", "TenantExceptions"),
			SheetRegionPreferences: getEnvString("SHEETS_REGION_PREFERENCES", "RegionPreferences"),
		},
		Attach: AttachConfig{
			URL:     getEnvString("ADD_PN_URL", ""),
			Timeout: getEnvDuration("ADD_PN_TIMEOUT", utils.AttachAPITimeout),
			Headers: getEnvHeaders("ADD_PN_HEADERS"),
		},
		SMTP: SMTPConfig{
			Host:     getEnvString("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnvString("SMTP_USER", ""),
			Password: getEnvString("SMTP_PASS", ""),
			From:     getEnvString("SMTP_FROM", "no-reply@example.com"),
			UseTLS:   getEnvBool("SMTP_USE_TLS", true),
			Timeout:  getEnvDuration("SMTP_TIMEOUT", utils.SMTPTimeout),
		},
		Email: EmailConfig{
			AdminTo:       getEnvString("ADMIN_EMAIL", ""),
			SubjectPrefix: getEnvString("EMAIL_SUBJECT_PREFIX", utils.DefaultSubjectPrefix),
		},
		Logging: LoggingConfig{
			Level:      strings.ToLower(getEnvString("LOG_LEVEL", "info")),
			Format:     strings.ToLower(getEnvString("LOG_FORMAT", "json")),
			Dir:        getEnvString("LOG_DIR", "logs"),
			RotateMB:   getEnvInt("LOG_ROTATE_MB", 10),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		},
		Schema: SchemaConfig{
			Version: strings.ToLower(getEnvString("SCHEMA_VERSION", "v1")),
			File:    getEnvString("SCHEMA_FILE", ""),
			TableOverrides: compactMap(map[string]string{
				"purchased_numbers": os.Getenv("TBL_PURCHASED"),
				"pilot_status":      os.Getenv("TBL_PRI"),
				"available_pool":    os.Getenv("TBL_AVAILABLE_PNS"),
				"pilot_number_map":  os.Getenv("TBL_OUTGOING"),
				"assignments":       os.Getenv("TBL_ASSIGNED"),
			}),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnvString("METRICS_PUSHGATEWAY_URL", ""),
			JobName:        getEnvString("METRICS_JOB_NAME", "pn_backup"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", false),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "pn_backup:"),
			RunLockTTL:  getEnvDuration("RUN_LOCK_TTL", 30*time.Minute),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if result := utils.SplitList(value); len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// getEnvHeaders parses "Name:Value,Other:Value" into a header map
func getEnvHeaders(key string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range getEnvStringSlice(key, nil) {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			headers[name] = strings.TrimSpace(value)
		}
	}
	return headers
}

func compactMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// ValidateConfig validates the loaded configuration
func ValidateConfig(cfg *Config) error {
	var errors []string

	// Validate database configuration
	switch cfg.Database.Driver {
	case "mysql", "postgres":
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required")
		}
	case "sqlite":
	default:
		errors = append(errors, "DB_DRIVER must be one of: mysql, postgres, sqlite")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.PoolSize <= 0 {
		errors = append(errors, "DB_POOL_SIZE must be positive")
	}
	if cfg.Database.ConnectTimeout <= 0 {
		errors = append(errors, "DB_CONNECT_TIMEOUT must be positive")
	}

	// Validate run configuration
	if cfg.Run.LookbackMinutes < 0 {
		errors = append(errors, "RUN_LOOKBACK_MINUTES must not be negative")
	}
	if cfg.Run.PNPerPilotPerVN <= 0 {
		errors = append(errors, "PN_PER_PILOT_PER_VN must be positive")
	}
	if strings.TrimSpace(cfg.Run.ReservedByTag) == "" {
		errors = append(errors, "RESERVED_BY_TAG is required")
	}

	// Validate sources
	switch cfg.Sources.Kind {
	case SourceKindCSV, SourceKindXLSX:
	default:
		errors = append(errors, fmt.Sprintf("SOURCE_KIND must be one of: %s, %s", SourceKindCSV, SourceKindXLSX))
	}

	// Validate attach API
	if cfg.Attach.URL == "" {
		errors = append(errors, "ADD_PN_URL is required")
	}
	if cfg.Attach.Timeout <= 0 {
		errors = append(errors, "ADD_PN_TIMEOUT must be positive")
	}

	// Validate email configuration if enabled
	if cfg.SMTP.Host != "" {
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			errors = append(errors, "SMTP_PORT must be between 1 and 65535")
		}
		if cfg.SMTP.From == "" {
			errors = append(errors, "SMTP_FROM is required for email configuration")
		}
	}
	if cfg.Email.AdminTo == "" {
		errors = append(errors, "ADMIN_EMAIL is required")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	valid := false
	for _, level := range validLevels {
		if cfg.Logging.Level == level {
			valid = true
			break
		}
	}
	if !valid {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	if cfg.Logging.RotateMB <= 0 {
		errors = append(errors, "LOG_ROTATE_MB must be positive")
	}

	// Validate schema selection
	if cfg.Schema.File == "" && cfg.Schema.Version != "v1" && cfg.Schema.Version != "v2" {
		errors = append(errors, "SCHEMA_VERSION must be v1 or v2 when SCHEMA_FILE is not set")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
		}
		if cfg.Cache.RunLockTTL <= 0 {
			errors = append(errors, "RUN_LOCK_TTL must be positive when cache is enabled")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
