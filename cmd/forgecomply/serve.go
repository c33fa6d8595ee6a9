package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/forgecomply/forgecomply360/internal/api/http"
	"github.com/forgecomply/forgecomply360/internal/api/http/handlers"
	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/observability"
	"github.com/forgecomply/forgecomply360/internal/persistence"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
	"github.com/forgecomply/forgecomply360/internal/storage"
	"github.com/forgecomply/forgecomply360/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the compliance scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	if cfg.Database.RunMigrations {
		if err := persistence.RunMigrations(rt.db, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	blobs, err := storage.NewBlobStore(cfg.Evidence.Dir, cfg.Evidence.MaxBytes)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification, &http.Client{Timeout: service.WebhookTimeout})
	worker.StartNotificationWorker(notifications)

	db := rt.db.Handle()
	orgRepo := repository.NewOrganizationRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	controlRepo := repository.NewControlRepository(db)
	systemRepo := repository.NewSystemRepository(db)
	implRepo := repository.NewImplementationRepository(db)
	poamRepo := repository.NewPOAMRepository(db)
	evidenceRepo := repository.NewEvidenceRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	monitoringRepo := repository.NewMonitoringRepository(db)

	auditService := service.NewAuditService(auditRepo, logger, nil)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		OrgRepo:    orgRepo,
		UserRepo:   userRepo,
		Tokens:     tokens,
		Revoker:    redis,
		Audit:      auditService,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		Audit:      auditService,
		Dispatcher: dispatcher,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	catalogService := service.NewCatalogService(controlRepo, logger, nil)
	systemService := service.NewSystemService(service.SystemDependencies{
		SystemRepo:         systemRepo,
		ImplementationRepo: implRepo,
		ControlRepo:        controlRepo,
		Audit:              auditService,
	})
	implService := service.NewImplementationService(service.ImplementationDependencies{
		ImplementationRepo: implRepo,
		SystemRepo:         systemRepo,
		ControlRepo:        controlRepo,
		Audit:              auditService,
	})
	poamService := service.NewPOAMService(service.POAMDependencies{
		POAMRepo:    poamRepo,
		SystemRepo:  systemRepo,
		ControlRepo: controlRepo,
		Audit:       auditService,
		Dispatcher:  dispatcher,
	})
	evidenceService := service.NewEvidenceService(service.EvidenceDependencies{
		EvidenceRepo:       evidenceRepo,
		ImplementationRepo: implRepo,
		Blobs:              blobs,
		Audit:              auditService,
		Logger:             logger,
	})
	policyService := service.NewPolicyService(service.PolicyDependencies{
		PolicyRepo:   policyRepo,
		ApprovalRepo: approvalRepo,
		Audit:        auditService,
		Dispatcher:   dispatcher,
	})
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		ApprovalRepo:  approvalRepo,
		Tx:            repository.NewTxRunner(db),
		POAMService:   poamService,
		PolicyService: policyService,
		Audit:         auditService,
		Dispatcher:    dispatcher,
	})
	assetService := service.NewAssetService(assetRepo, systemRepo, auditService, nil)
	monitoringService := service.NewMonitoringService(service.MonitoringDependencies{
		MonitoringRepo:     monitoringRepo,
		SystemRepo:         systemRepo,
		ImplementationRepo: implRepo,
		Audit:              auditService,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		SystemRepo:         systemRepo,
		ControlRepo:        controlRepo,
		ImplementationRepo: implRepo,
		POAMRepo:           poamRepo,
		EvidenceRepo:       evidenceRepo,
		PolicyRepo:         policyRepo,
		ApprovalRepo:       approvalRepo,
		MonitoringRepo:     monitoringRepo,
		Audit:              auditService,
		Cache:              redis,
		CacheTTL:           cfg.Dashboard.CacheTTL(),
		Logger:             logger,
	})
	calendarService := service.NewCalendarService(service.CalendarDependencies{
		POAMRepo:       poamRepo,
		PolicyRepo:     policyRepo,
		EvidenceRepo:   evidenceRepo,
		MonitoringRepo: monitoringRepo,
		SystemRepo:     systemRepo,
	})
	sweepService := service.NewSweepService(service.SweepDependencies{
		EvidenceRepo:   evidenceRepo,
		MonitoringRepo: monitoringRepo,
		POAMRepo:       poamRepo,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})

	var redisPinger handlers.Pinger
	if redis.Enabled() {
		redisPinger = redis
	}

	app := httptransport.NewApp(cfg)
	httptransport.RegisterMiddlewares(app, cfg, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, rt.db, redisPinger),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Systems:        handlers.NewSystemsHandler(systemService, implService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		POAMs:          handlers.NewPOAMsHandler(poamService),
		Evidence:       handlers.NewEvidenceHandler(evidenceService),
		Policies:       handlers.NewPoliciesHandler(policyService),
		Assets:         handlers.NewAssetsHandler(assetService),
		Monitoring:     handlers.NewMonitoringHandler(monitoringService),
		Approvals:      handlers.NewApprovalsHandler(approvalService),
		Audit:          handlers.NewAuditHandler(auditService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService, calendarService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo, redis),
		LoginThrottle:  auth.NewLoginThrottle(cfg.Auth.LoginRatePerMinute),
		Metrics:        metrics,
	})

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	group.Go(func() error {
		return worker.NewScheduler(sweepService, cfg.Scheduler.Interval(), logger).Run(gctx)
	})
	return group.Wait()
}
