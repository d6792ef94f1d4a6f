package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	brokerapi "github.com/notionify/auth-broker/api/echo"
	cacheredis "github.com/notionify/auth-broker/cache/redis"
	"github.com/notionify/auth-broker/config"
	"github.com/notionify/auth-broker/entitlement"
	"github.com/notionify/auth-broker/internal/server"
	"github.com/notionify/auth-broker/log"
	"github.com/notionify/auth-broker/mongodb"
	"github.com/notionify/auth-broker/notion"
	"github.com/notionify/auth-broker/payment"
	"github.com/notionify/auth-broker/projects"
	"github.com/notionify/auth-broker/services"
	"github.com/notionify/auth-broker/tracing"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting auth-broker server...", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     cfg.LogLevel,
		"projects":      len(cfg.Projects),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	db := mongodb.GetDB()

	entitlementRepo, err := mongodb.NewEntitlementRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize EntitlementRepository", err)
	}

	registry := projects.NewRegistry(cfg.Projects)
	valid, invalid := registry.ValidateAll()
	appLogger.Info(ctx, "Project registry loaded", map[string]interface{}{
		"valid":   len(valid),
		"invalid": len(invalid),
	})
	for _, project := range invalid {
		appLogger.Warn(ctx, "Project configuration incomplete, excluded from listings", map[string]interface{}{
			"project": project.Config.Key,
			"missing": project.Missing,
		})
	}

	verifier := payment.NewVerifier(payment.NewStripeRetriever(cfg.StripeSecretKey), 2*time.Minute)
	defer verifier.Stop()

	issuer := entitlement.NewIssuer(entitlementRepo)

	// Without Redis there is no replay guard: a reloaded success page can
	// mint a second code for the same checkout session.
	var guard services.SessionGuard
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		guard = cacheredis.NewSessionGuard(redisClient, "auth-broker", 24*time.Hour)
		appLogger.Info(ctx, "Purchase idempotency guard enabled", map[string]interface{}{"redis_addr": cfg.RedisAddr})
	} else {
		appLogger.Warn(ctx, "REDIS_ADDR not set, purchase idempotency guard disabled")
	}

	callbackService := services.NewCallbackService(registry, notion.NewClient(nil))
	purchaseService := services.NewPurchaseService(verifier, issuer, guard)

	api := brokerapi.NewBrokerAPI(callbackService, purchaseService, registry, cfg.SuccessViewPath, mongodb.Ping)
	httpServer = server.NewHTTPServer(cfg, appLogger, api)

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": httpServer.Addr})
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			appLogger.Fatal(ctx, "HTTP server failed", serveErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown failed", shutdownErr)
	}
	if tpErr := tracerProvider.Shutdown(shutdownCtx); tpErr != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown failed", tpErr)
	}
	mongodb.CloseMongoDB(shutdownCtx)

	appLogger.Info(ctx, "Server stopped.")
}
