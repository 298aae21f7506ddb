package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/creator-service/internal/api/http"
	"github.com/spec-kit/creator-service/internal/api/http/handlers"
	"github.com/spec-kit/creator-service/internal/config"
	"github.com/spec-kit/creator-service/internal/events"
	"github.com/spec-kit/creator-service/internal/identity"
	"github.com/spec-kit/creator-service/internal/observability"
	"github.com/spec-kit/creator-service/internal/oracle"
	"github.com/spec-kit/creator-service/internal/persistence"
	"github.com/spec-kit/creator-service/internal/repository"
	"github.com/spec-kit/creator-service/internal/service"
	"github.com/spec-kit/creator-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	inviteRepo := repository.NewInviteRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	activationRepo := repository.NewActivationRepository(pool)
	sessionStore := repository.NewSessionStore(redis.Client, cfg.Onboarding.DraftTTL())

	inviteService := service.NewInviteService(inviteRepo, logger)
	onboardingService := service.NewOnboardingService(service.OnboardingDependencies{
		Invites:     inviteService,
		ProfileRepo: profileRepo,
		Sessions:    sessionStore,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	activationService := service.NewActivationService(service.ActivationDependencies{
		AccountRepo: activationRepo,
		Oracle:      oracle.NewStripeOracle(cfg.Stripe, logger),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	reconcileWorker := worker.NewReconcileWorker(
		activationService,
		cfg.Reconcile.PollInterval(),
		cfg.Reconcile.WatchDeadline(),
		logger,
	)
	if err := reconcileWorker.Start(cfg.Reconcile.SweepSpec); err != nil {
		logger.Fatal("failed to start reconcile worker", zap.Error(err))
	}

	identityMiddleware := identity.NewMiddleware(identity.NewTokenVerifier(cfg.Identity.JWTSecret))

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:             handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Invites:            handlers.NewInvitesHandler(inviteService),
		Onboarding:         handlers.NewOnboardingHandler(onboardingService),
		Activation:         handlers.NewActivationHandler(activationService, reconcileWorker),
		IdentityMiddleware: identityMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	reconcileWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
