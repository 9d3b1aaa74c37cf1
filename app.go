package main

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/pn-backup/app/metrics"
	"github.com/amirphl/pn-backup/app/services"
	"github.com/amirphl/pn-backup/config"
	"github.com/amirphl/pn-backup/repository"
	"github.com/amirphl/pn-backup/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application holds the process-wide collaborators shared by every command
type Application struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	rc       *redis.Client
	schema   *repository.Schema
	metrics  *metrics.RunMetrics
	notifier services.NotificationService

	stopFuncs []func()
}

// initializeApplication loads config and opens the store; callers must Close the result
func initializeApplication() (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLogger, err := utils.NewLogger(utils.LoggerOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Dir:        cfg.Logging.Dir,
		MaxSizeMB:  cfg.Logging.RotateMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app := &Application{cfg: cfg, logger: logger, stopFuncs: []func(){closeLogger}}

	app.schema, err = repository.LoadSchema(cfg.Schema.Version, cfg.Schema.File, cfg.Schema.TableOverrides)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	app.db, err = initializeDatabase(cfg.Database, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.stopFuncs = append(app.stopFuncs, func() {
		if sqlDB, err := app.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	app.rc, err = initializeCache(cfg.Cache, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if app.rc != nil {
		app.stopFuncs = append(app.stopFuncs, func() { _ = app.rc.Close() })
	}

	app.metrics = metrics.NewRunMetrics()
	app.notifier = initializeNotificationService(cfg, logger)
	return app, nil
}

// Close releases resources in reverse order of acquisition
func (a *Application) Close() {
	for i := len(a.stopFuncs) - 1; i >= 0; i-- {
		a.stopFuncs[i]()
	}
	a.stopFuncs = nil
}

// databaseDialector builds the gorm dialector for the configured driver
func databaseDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	timeout := cfg.ConnectTimeout
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC&timeout=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, timeout)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode, int(timeout.Seconds()))
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dialector, err := databaseDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: utils.UTCNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.PoolSize)
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("driver", cfg.Driver),
		zap.String("database", cfg.Name),
		zap.Int("pool_size", cfg.PoolSize))
	return db, nil
}

// initializeCache connects to Redis when the run lock is enabled; nil means no lock
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// initializeNotificationService picks SMTP when a host is configured and the recording mock otherwise
func initializeNotificationService(cfg *config.Config, logger *zap.Logger) services.NotificationService {
	var emailProvider services.EmailProvider
	if cfg.SMTP.Host != "" {
		emailProvider = services.NewSMTPEmailProvider(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.SMTP.From,
			cfg.SMTP.UseTLS,
			cfg.SMTP.Timeout,
		)
	} else {
		logger.Warn("SMTP_HOST not set, e-mails are logged only")
		emailProvider = services.NewMockEmailProvider()
	}
	return services.NewNotificationService(emailProvider, cfg.Email.AdminTo, cfg.Email.SubjectPrefix, logger)
}
