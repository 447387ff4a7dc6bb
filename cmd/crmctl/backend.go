package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/notify"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
	"github.com/spec-kit/crm-service/internal/worker"
)

// backend is everything a command needs once configuration and the database are up.
type backend struct {
	cfg        *config.Config
	logger     *zap.Logger
	pg         *persistence.Postgres
	broker     *persistence.AMQP
	auth       *service.AuthService
	conversion *service.LeadConversionService
	escalation *service.CaseEscalationService
}

type backendOpener func(ctx context.Context) (*backend, error)

func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	b := &backend{cfg: cfg, logger: logger, pg: pg}

	b.broker, err = persistence.NewAMQP(cfg.AMQP, logger)
	if err != nil {
		logger.Warn("event forwarding disabled", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	repos := repository.NewRepositories(pg.Pool)
	deps := service.Dependencies{
		Repos:      repos,
		Tx:         repository.NewTransactor(pg.Pool),
		Dispatcher: dispatcher,
		Logger:     logger,
	}

	var mailer service.Mailer
	if m := notify.NewSMTPMailer(cfg.Notification); m != nil {
		mailer = m
	}
	var forwarder worker.EventForwarder
	if b.broker != nil {
		if publisher, err := events.NewAMQPPublisher(b.broker.Channel, cfg.AMQP.Exchange, logger); err == nil {
			forwarder = publisher
		} else {
			logger.Warn("event forwarding disabled", zap.Error(err))
		}
	}
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(dispatcher, repos.Users, mailer, logger), forwarder, logger)

	b.auth = service.NewAuthService(cfg.Auth, repos.Users, logger)
	b.conversion = service.NewLeadConversionService(deps)
	b.escalation = service.NewCaseEscalationService(deps)
	return b, nil
}

func (b *backend) Close() {
	b.broker.Close()
	b.pg.Close()
	_ = b.logger.Sync()
}
