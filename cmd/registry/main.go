package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-delegation/pkg/client"
	"github.com/tendant/simple-delegation/pkg/config"
	"github.com/tendant/simple-delegation/pkg/delegation"
	delegationapi "github.com/tendant/simple-delegation/pkg/delegation/api"
	"github.com/tendant/simple-delegation/pkg/metrics"
	"github.com/tendant/simple-delegation/pkg/notification"
	"github.com/tendant/simple-delegation/pkg/openapi"
	"github.com/tendant/simple-delegation/pkg/oracle"
	oracleapi "github.com/tendant/simple-delegation/pkg/oracle/api"
	"github.com/tendant/simple-delegation/pkg/ratelimit"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	Registry  config.RegistryConfig
	Oracle    config.OracleConfig
	Database  config.DatabaseConfig
	Email     config.EmailConfig
	JWT       config.JWTConfig
	RateLimit config.RateLimitConfig

	// Server
	AppConfig app.AppConfig
}

func main() {
	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	validators := []config.Validator{
		cfg.Registry.Validator(),
		cfg.Oracle.Validator(),
		cfg.Email.Validator(),
		cfg.JWT.Validator(),
		cfg.RateLimit.Validator(),
	}
	if cfg.Registry.Persistence == config.PersistencePostgres {
		validators = append(validators, cfg.Database.Validator())
	}
	if err := config.Validate(validators...); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	repoConfig := delegation.RepositoryConfig{DataDir: cfg.Registry.DataDir}
	if cfg.Registry.Persistence == config.PersistencePostgres {
		dbConfig := cfg.Database.ToDbConfig()
		pool, err := dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(1)
		}
		defer pool.Close()

		if err := delegation.Migrate(ctx, pool); err != nil {
			slog.Error("Failed to migrate delegation schema", "error", err)
			os.Exit(1)
		}
		repoConfig.DB = pool
	}
	repo, err := delegation.NewDelegationRepository(cfg.Registry.Persistence, repoConfig)
	if err != nil {
		slog.Error("Failed to create delegation repository", "persistence", cfg.Registry.Persistence, "error", err)
		os.Exit(1)
	}

	// Ownership oracle
	var owners oracle.Oracle
	var devOracle *oracle.InMemOracle
	switch cfg.Oracle.Backend {
	case config.OracleEth:
		ethOracle, err := oracle.DialEthOracle(ctx, cfg.Oracle.RPCURL, cfg.Oracle.Timeout)
		if err != nil {
			slog.Error("Failed to dial ownership oracle", "rpc", cfg.Oracle.RPCURL, "error", err)
			os.Exit(1)
		}
		defer ethOracle.Close()
		owners = ethOracle
	default:
		devOracle = oracle.NewInMemOracle()
		owners = devOracle
		slog.Warn("Using in-memory ownership oracle; dev mint and transfer routes are enabled", "role", oracleapi.DevRole)
	}

	// Events, notifications and metrics
	events := notification.NewEventLog(notification.WithCapacity(cfg.Registry.EventCapacity))
	registryMetrics := metrics.New()

	opts := []notification.NotificationManagerOption{notification.WithLog(logger)}
	if cfg.Email.Enabled {
		smtpConfig, err := cfg.Email.ToSMTPConfig()
		if err != nil {
			slog.Error("Failed to map email configuration", "error", err)
			os.Exit(1)
		}
		opts = append(opts, notification.WithSMTP(smtpConfig))
	}
	notificationManager, err := notification.NewNotificationManagerWithOptions(opts...)
	if err != nil {
		slog.Error("Failed to create notification manager", "error", err)
		os.Exit(1)
	}
	notificationManager.RegisterNotifier(notification.NotificationSystem("metrics"), registryMetrics)
	go notificationManager.Run(ctx, events)

	delegationService := delegation.NewDelegationService(repo, owners,
		delegation.WithEvents(events),
		delegation.WithRecorder(registryMetrics),
		delegation.WithAllowSelfDelegation(cfg.Registry.AllowSelfDelegation),
	)

	doc, err := openapi.Load(ctx)
	if err != nil {
		slog.Error("Failed to load OpenAPI document", "error", err)
		os.Exit(1)
	}

	// HTTP server
	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)

	server := newServer(cfg)
	server.R.Handle("/metrics", registryMetrics.Handler())
	server.R.Get("/api/v1/openapi.yaml", doc.Handler())

	limiter := ratelimit.NewMiddleware(rateLimitConfig(cfg.RateLimit))

	server.R.Group(func(r chi.Router) {
		r.Use(client.Verifier(tokenAuth))
		r.Use(client.CallerMiddleware)
		r.Use(limiter.Handler)

		r.Mount("/api/v1", delegationapi.Handler(delegationapi.NewDelegationHandler(delegationService, doc)))
		if devOracle != nil {
			r.Mount("/api/v1/dev", oracleapi.Handler(oracleapi.NewOracleHandler(devOracle, doc)))
		}
	})

	slog.Info("Delegation registry ready",
		"persistence", cfg.Registry.Persistence,
		"oracle", cfg.Oracle.Backend,
		"notifiers", notificationManager.Systems(),
		"api_version", doc.Version(),
		"addr", fmt.Sprintf("%s:%d", cfg.AppConfig.Host, cfg.AppConfig.Port),
	)
	server.Run()
}

// newServer builds the chi-demo app with health routes. Its RealIP middleware
// rewrites RemoteAddr from X-Forwarded-For and X-Real-IP, so the registry is
// expected to run behind a proxy that sets them.
func newServer(cfg Config) *app.App {
	server := app.NewApp(
		app.WithAppConfig(cfg.AppConfig),
		app.WithMetrics(true),
		app.WithCors(app.DefaultCorsOptions()),
		app.WithReqLogger(app.DefaultHttpLogger()),
	)
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	return server
}

func rateLimitConfig(c config.RateLimitConfig) ratelimit.Config {
	rateConfig := ratelimit.DefaultConfig().PerMinute(c.PerIPPerMinute, c.PerCallerPerMinute)
	if c.BucketTTL > 0 {
		rateConfig.BucketTTL = c.BucketTTL
	}
	return rateConfig
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
