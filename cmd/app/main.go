package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/infra/adapters/gateway"
	"funnel-billing/internal/infra/adapters/mail"
	"funnel-billing/internal/infra/adapters/partner"
	tele "funnel-billing/internal/infra/adapters/telegram"
	pg "funnel-billing/internal/infra/db/postgres"
	httpapi "funnel-billing/internal/infra/http"
	"funnel-billing/internal/infra/i18n"
	"funnel-billing/internal/infra/logging"
	"funnel-billing/internal/infra/metrics"
	red "funnel-billing/internal/infra/redis"
	"funnel-billing/internal/infra/sched"
	"funnel-billing/internal/infra/security"
	"funnel-billing/internal/infra/worker"
	"funnel-billing/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no PII redaction)")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("funnel-billing stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting funnel-billing")

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, cfg.Scheduler.PoolStatsEvery)

	checks := map[string]httpapi.HealthCheck{"postgres": pool.Ping}

	// ---- Redis (optional) ----
	var (
		locker  adapter.Locker
		limiter httpapi.RateLimiter
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		locker = red.NewLocker(rc)
		limiter = red.NewRateLimiter(rc)
		checks["redis"] = rc.Ping
	} else {
		logger.Warn().Msg("redis not configured; delivery lock and rate limit disabled")
	}

	// ---- Security ----
	var sealer pg.PayloadSealer
	if cfg.Security.EncryptionKey != "" {
		enc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			return fmt.Errorf("encryption: %w", err)
		}
		sealer = enc
	}
	tokens, err := security.NewTokenService(
		cfg.Security.SetupTokenSecret,
		cfg.Workspace.CloneTokenSecret,
		cfg.Security.SetupTokenTTL,
		"funnel-billing",
	)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	// ---- Repositories ----
	store := usecase.Stores{
		Accounts:      pg.NewAccountRepo(pool),
		Payments:      pg.NewPaymentRepo(pool, sealer),
		Subscriptions: pg.NewSubscriptionRepo(pool),
		AddOns:        pg.NewAddOnRepo(pool),
		Links:         pg.NewAffiliateLinkRepo(pool),
		Ledger:        pg.NewBalanceTransactionRepo(pool),
		Workspaces:    pg.NewWorkspaceRepo(pool),
		TxManager:     pg.NewTxManager(pool),
	}

	// ---- Adapters ----
	ports, registry, err := buildAdapters(cfg, logger)
	if err != nil {
		return err
	}
	ports.Tokens = tokens

	// ---- Side effects ----
	workers := worker.NewPool(cfg.Billing.Workers, cfg.Billing.QueueSize, logger)
	workers.Start(context.Background())
	defer workers.Stop()
	effects := worker.NewEffectDispatcher(workers, cfg.Billing.SideEffectTimeout, logger)

	// ---- Use cases ----
	reconciler := usecase.NewSubscriberReconciler(store.Subscriptions, registry, logger)
	webhookUC := usecase.NewWebhookUseCase(store, ports, reconciler, effects, locker, usecase.WebhookConfig{
		LockTTL: cfg.Webhook.LockTTL,
		Dev:     cfg.Runtime.Dev,
		Purchase: usecase.PurchaseConfig{
			HoldPeriod: time.Duration(cfg.Billing.HoldDays) * 24 * time.Hour,
		},
	}, logger)
	releaseUC := usecase.NewCommissionReleaseUseCase(store.Accounts, store.Payments, store.Links, store.Ledger, store.TxManager, logger)

	// ---- Schedulers ----
	releaser := sched.NewCommissionReleaseWorker(cfg.Scheduler.ReleaseInterval, cfg.Scheduler.ReleaseBatch, releaseUC, logger)
	go func() { _ = releaser.Run(ctx) }()
	backfill := sched.NewSubscriberBackfill(reconciler, cfg.Scheduler.BackfillInterval, cfg.Scheduler.BackfillMinAge, logger)
	go backfill.Start(ctx)

	// ---- HTTP ----
	srv := httpapi.NewServer(&cfg.HTTP, webhookUC, limiter, httpapi.WebhookOptions{
		Secret:       cfg.Webhook.Secret,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		RateLimit:    cfg.Webhook.RateLimit,
		RateWindow:   cfg.Webhook.RateWindow,
	}, checks, logger)
	if cfg.Webhook.Secret == "" {
		logger.Warn().Msg("webhook.secret is empty; signatures are not verified")
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

// buildAdapters picks a real adapter for every configured integration and a noop otherwise.
func buildAdapters(cfg *config.Config, logger *zerolog.Logger) (usecase.Collaborators, adapter.SubscriberRegistry, error) {
	var (
		ports    usecase.Collaborators
		registry adapter.SubscriberRegistry = gateway.NoopSubscriberRegistry{}
	)

	if cfg.Mail.Host != "" {
		tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Mail.Language)
		if err != nil {
			return ports, nil, fmt.Errorf("mail locale: %w", err)
		}
		m, err := mail.NewSMTPMailer(&cfg.Mail, tr)
		if err != nil {
			return ports, nil, fmt.Errorf("mailer: %w", err)
		}
		ports.Mailer = m
	} else {
		ports.Mailer = mail.NewNoopMailer(logger, cfg.Runtime.Dev)
	}

	if cfg.CRM.URL != "" {
		c, err := partner.NewHTTPCRM(&cfg.CRM)
		if err != nil {
			return ports, nil, fmt.Errorf("crm: %w", err)
		}
		ports.CRM = c
	} else {
		ports.CRM = partner.NewNoopCRM(logger)
	}

	if cfg.Workspace.ClonerURL != "" {
		c, err := partner.NewHTTPWorkspaceCloner(&cfg.Workspace)
		if err != nil {
			return ports, nil, fmt.Errorf("workspace cloner: %w", err)
		}
		ports.Cloner = c
	} else {
		ports.Cloner = partner.NewNoopWorkspaceCloner(logger)
	}

	if cfg.Alerts.Telegram.Token != "" {
		a, err := tele.NewAlerter(&cfg.Alerts.Telegram)
		if err != nil {
			return ports, nil, fmt.Errorf("telegram alerter: %w", err)
		}
		ports.Alerter = a
	} else {
		ports.Alerter = tele.NewNoopAlerter(logger)
	}

	if cfg.Gateway.BaseURL != "" {
		r, err := gateway.NewHTTPSubscriberRegistry(&cfg.Gateway)
		if err != nil {
			return ports, nil, fmt.Errorf("subscriber registry: %w", err)
		}
		registry = r
	}
	return ports, registry, nil
}
