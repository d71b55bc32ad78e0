package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NYCU-SDC/playbook-builder-backend/internal"
	"NYCU-SDC/playbook-builder-backend/internal/builder"
	"NYCU-SDC/playbook-builder-backend/internal/config"
	"NYCU-SDC/playbook-builder-backend/internal/cors"
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/tenant"
	"NYCU-SDC/playbook-builder-backend/internal/trace"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

const (
	shutdownTimeout = 5 * time.Second
	dbPingTimeout   = 5 * time.Second
)

// buildInfo is stamped into every log line and the otel resource
type buildInfo struct {
	appName     string
	version     string
	buildTime   string
	commitHash  string
	environment string
}

func (b buildInfo) fields() []zap.Field {
	return []zap.Field{
		zap.String("app_name", b.appName),
		zap.String("version", b.version),
		zap.String("build_time", b.buildTime),
		zap.String("commit_hash", b.commitHash),
		zap.String("environment", b.environment),
	}
}

func main() {
	info := resolveBuildInfo()

	cfg, cfgLog := config.Load()
	if err := cfg.Validate(); err != nil {
		switch {
		case errors.Is(err, config.ErrDatabaseURLRequired):
			log.Fatal(EarlyApplicationFailed(
				"Database URL is required",
				"Please set the DATABASE_URL environment variable or provide a config file with the database_url key.",
			))
		case errors.Is(err, config.ErrInvalidTestRunTimeout):
			log.Fatal(EarlyApplicationFailed(
				"Test run timeout is invalid",
				"Set TEST_RUN_TIMEOUT or the test_run_timeout key to a positive Go duration such as 30s.",
			))
		case errors.Is(err, config.ErrInvalidSessionIdleTimeout):
			log.Fatal(EarlyApplicationFailed(
				"Session idle timeout is invalid",
				"Set SESSION_IDLE_TIMEOUT or the session_idle_timeout key to a Go duration such as 30m, or 0 to disable expiry.",
			))
		default:
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(cfg.Debug, info)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}
	defer func() {
		// stderr sync fails with EINVAL on some terminals
		_ = logger.Sync()
	}()

	cfgLog.FlushToZap(logger)

	testRunTimeout, err := cfg.TestRunTimeoutDuration()
	if err != nil {
		logger.Fatal("Invalid test run timeout", zap.Error(err))
	}
	sessionIdleTimeout, err := cfg.SessionIdleTimeoutDuration()
	if err != nil {
		logger.Fatal("Invalid session idle timeout", zap.Error(err))
	}

	logger.Info("Starting database migration...", zap.String("source", cfg.MigrationSource))
	if err := databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdownTracing, err := initOpenTelemetry(info, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()

	// Service
	tenantService := tenant.NewService(logger, dbPool)
	playbookService := playbook.NewService(logger, dbPool)
	sessions := builder.NewSessions(
		logger,
		builder.NewStoreFactory(logger, playbookService, builder.WithTestTimeout(testRunTimeout)),
		builder.WithIdleTimeout(sessionIdleTimeout),
	)
	stopSweeper := sessions.StartSweeper()

	// Handler
	handlers := routeHandlers{
		tenant:   tenant.NewHandler(logger, validator, problemWriter, tenantService),
		playbook: playbook.NewHandler(logger, validator, problemWriter, playbookService),
		builder:  builder.NewHandler(logger, validator, problemWriter, sessions),
	}

	// Middleware
	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	tenantMiddleware := tenant.NewMiddleware(logger, problemWriter, tenantService)

	mux := http.NewServeMux()
	registerRoutes(mux, logger, handlers, traceMiddleware, tenantMiddleware)

	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           corsMiddleware.HandlerFunc(mux.ServeHTTP),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// no request can reach a session once the server has stopped
	stopSweeper()
	logger.Info("Closing builder sessions", zap.Int("open", sessions.Len()))
	sessions.CloseAll()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

func resolveBuildInfo() buildInfo {
	info := buildInfo{
		appName:     os.Getenv("APP_NAME"),
		version:     Version,
		buildTime:   BuildTime,
		commitHash:  CommitHash,
		environment: os.Getenv("ENV"),
	}
	if info.appName == "" {
		info.appName = "playbook-builder-backend"
	}
	if info.buildTime == "no-build-time" {
		info.buildTime = "not provided (now: " + time.Now().Format(time.RFC3339) + ")"
	}
	if info.environment == "" {
		info.environment = Environment
	}
	return info
}

func initLogger(debug bool, info buildInfo) (*zap.Logger, error) {
	if debug {
		logger, err := logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", info.fields()...)
		return logger, nil
	}

	logger, err := logutil.ZapProductionConfig().Build()
	if err != nil {
		return nil, err
	}
	return logger.With(info.fields()...), nil
}

// initDatabasePool opens the pool and fails fast when the database cannot be
// reached.
func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return dbPool, nil
}

func initOpenTelemetry(info buildInfo, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(info.appName),
			semconv.ServiceVersionKey.String(info.version),
			semconv.ServiceNamespaceKey.String("playbook-builder"),
			semconv.DeploymentEnvironmentKey.String(info.environment),
			attribute.String("service.commit_hash", info.commitHash),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, err
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		options = append(options, sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter)))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	return fmt.Sprintf(`
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`, title, action)
}
