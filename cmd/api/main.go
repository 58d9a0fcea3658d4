package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rechargehub/rechargehub-backend/api/routes"
	"github.com/rechargehub/rechargehub-backend/internal/auth"
	"github.com/rechargehub/rechargehub-backend/internal/margins"
	"github.com/rechargehub/rechargehub-backend/internal/notifications"
	"github.com/rechargehub/rechargehub-backend/internal/payments"
	"github.com/rechargehub/rechargehub-backend/internal/plans"
	"github.com/rechargehub/rechargehub-backend/internal/purchases"
	"github.com/rechargehub/rechargehub-backend/internal/support"
	"github.com/rechargehub/rechargehub-backend/internal/users"
	"github.com/rechargehub/rechargehub-backend/internal/wallet"
	"github.com/rechargehub/rechargehub-backend/pkg/auth/session"
	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
	"github.com/rechargehub/rechargehub-backend/pkg/migrate"
	"github.com/rechargehub/rechargehub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
) (routes.Services, error) {
	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	walletRepo := wallet.NewRepository(gdb)

	walletService, err := wallet.NewService(dbClient, walletRepo)
	if err != nil {
		return routes.Services{}, err
	}

	usersService, err := users.NewService(userRepo, walletService, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	marginsService, err := margins.NewService(margins.NewRepository(gdb), userRepo)
	if err != nil {
		return routes.Services{}, err
	}

	plansService, err := plans.NewService(plans.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:    notifications.NewRepository(gdb),
		Wallets: walletService,
		Config:  cfg.Notifications,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	dispatcher := notificationsService.Dispatcher()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		OTPRepo:        auth.NewOTPRepository(gdb),
		SessionManager: sessionManager,
		Cooldowns:      redisClient,
		Notifier:       dispatcher,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		OTPConfig:      cfg.OTP,
		ExposeOTPCode:  cfg.OTP.ExposeCode && !cfg.App.IsProd(),
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	purchasesRepo := purchases.NewRepository(gdb)
	purchasesService, err := purchases.NewService(purchases.ServiceParams{
		Repo:      purchasesRepo,
		Catalog:   plansService,
		Processor: purchases.NewSimulatedProcessor(cfg.Payments.SuccessRate, cfg.Payments.RetrySuccessRate, nil),
		Notifier:  dispatcher,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	paymentsService, err := payments.NewService(dbClient, payments.NewRepository(gdb), walletRepo, cfg.Payments)
	if err != nil {
		return routes.Services{}, err
	}

	supportService, err := support.NewService(support.NewRepository(gdb), purchasesRepo, dispatcher, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Sessions:      sessionManager,
		Auth:          authService,
		Users:         usersService,
		Wallet:        walletService,
		Margins:       marginsService,
		Plans:         plansService,
		Purchases:     purchasesService,
		Payments:      paymentsService,
		Notifications: notificationsService,
		Support:       supportService,
	}, nil
}
