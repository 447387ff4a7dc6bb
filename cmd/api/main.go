package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/crm-service/internal/api/http"
	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/notify"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
	"github.com/spec-kit/crm-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if _, err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	broker, err := persistence.NewAMQP(cfg.AMQP, logger)
	if err != nil {
		logger.Warn("event forwarding disabled", zap.Error(err))
	}
	defer broker.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	repos := repository.NewRepositories(pg.Pool)
	deps := service.Dependencies{
		Repos:      repos,
		Tx:         repository.NewTransactor(pg.Pool),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}

	authService := service.NewAuthService(cfg.Auth, repos.Users, logger)
	leadService := service.NewLeadService(deps)
	caseService := service.NewCaseService(deps)

	var mailer service.Mailer
	if m := notify.NewSMTPMailer(cfg.Notification); m != nil {
		mailer = m
	}
	var forwarder worker.EventForwarder
	if broker != nil {
		publisher, err := events.NewAMQPPublisher(broker.Channel, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("event forwarding disabled", zap.Error(err))
		} else {
			forwarder = publisher
		}
	}
	notifications := service.NewNotificationService(dispatcher, repos.Users, mailer, logger)
	worker.StartNotificationWorker(dispatcher, notifications, forwarder, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins(),
		Timeout:        cfg.App.RequestTimeout(),
	})

	var redisCheck handlers.Pinger
	if redis.Client != nil {
		redisCheck = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisCheck),
		Users:         handlers.NewUsersHandler(authService),
		Accounts:      handlers.NewAccountsHandler(service.NewAccountService(deps)),
		Contacts:      handlers.NewContactsHandler(service.NewContactService(deps), service.NewDuplicateDetector(repos)),
		Leads:         handlers.NewLeadsHandler(leadService, service.NewLeadConversionService(deps)),
		Opportunities: handlers.NewOpportunitiesHandler(service.NewOpportunityService(deps)),
		Cases: handlers.NewCasesHandler(caseService,
			service.NewCaseEscalationService(deps),
			service.NewCaseMergeService(deps)),
		Activities:     handlers.NewActivitiesHandler(service.NewActivityService(deps)),
		Dashboard:      handlers.NewDashboardHandler(service.NewDashboardService(deps, redis.Cache(), cfg.Dashboard.CacheTTL())),
		Audit:          handlers.NewAuditHandler(service.NewAuditService(deps)),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.Users),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
