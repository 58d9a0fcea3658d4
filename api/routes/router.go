package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rechargehub/rechargehub-backend/api/controllers"
	"github.com/rechargehub/rechargehub-backend/api/middleware"
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
	"github.com/rechargehub/rechargehub-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Sessions      session.AccessSessionChecker
	Auth          auth.Service
	Users         users.Service
	Wallet        wallet.Service
	Margins       margins.Service
	Plans         plans.Service
	Purchases     purchases.Service
	Payments      payments.Service
	Notifications notifications.Service
	Support       support.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/otp/request", controllers.AuthOTPRequest(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/otp/verify", controllers.AuthOTPVerify(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	// Catalog browsing is public so plans can be shown before sign in.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/providers", controllers.ListProviders(svcs.Plans, logg))
		r.Get("/plans", controllers.ListPlans(svcs.Plans, logg))
		r.Get("/plans/{planId}", controllers.GetPlan(svcs.Plans, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, svcs.Sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.Profile(svcs.Users, logg))
			r.Put("/", controllers.UpdateProfile(svcs.Users, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(svcs.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(svcs.Wallet, logg))
		})

		r.Route("/recharges", func(r chi.Router) {
			r.Post("/", controllers.CreateRecharge(svcs.Purchases, logg))
			r.Get("/", controllers.RechargeHistory(svcs.Purchases, logg))
			r.Get("/{purchaseId}", controllers.GetRecharge(svcs.Purchases, logg))
			r.Post("/{purchaseId}/retry", controllers.RetryRecharge(svcs.Purchases, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/orders", controllers.CreatePaymentOrder(svcs.Payments, logg))
			r.Get("/orders", controllers.ListPaymentOrders(svcs.Payments, logg))
			r.Post("/settle", controllers.SettlePayment(svcs.Payments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/support/tickets", func(r chi.Router) {
			r.Post("/", controllers.CreateSupportTicket(svcs.Support, logg))
			r.Get("/", controllers.ListSupportTickets(svcs.Support, logg))
			r.Get("/{ticketId}", controllers.GetSupportTicket(svcs.Support, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, svcs.Sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateUser(svcs.Users, logg))
			r.Get("/", controllers.AdminSearchUsers(svcs.Users, logg))
			r.Get("/{userId}", controllers.AdminGetUser(svcs.Users, logg))
			r.Put("/{userId}", controllers.AdminUpdateUser(svcs.Users, logg))
			r.Delete("/{userId}", controllers.AdminDeactivateUser(svcs.Users, logg))
			r.Post("/{userId}/reset-password", controllers.AdminResetPassword(svcs.Users, logg))
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", controllers.AdminListWallets(svcs.Wallet, logg))
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", controllers.AdminGetWallet(svcs.Wallet, logg))
				r.Get("/transactions", controllers.AdminWalletTransactions(svcs.Wallet, logg))
				r.Post("/credit", controllers.AdminWalletCredit(svcs.Wallet, logg))
				r.Post("/debit", controllers.AdminWalletDebit(svcs.Wallet, logg))
			})
		})

		r.Route("/margins", func(r chi.Router) {
			r.Put("/", controllers.AdminSetMargin(svcs.Margins, logg))
			r.Get("/", controllers.AdminListMargins(svcs.Margins, logg))
			r.Get("/{userId}", controllers.AdminGetMargin(svcs.Margins, logg))
		})

		r.Route("/providers", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProvider(svcs.Plans, logg))
			r.Get("/", controllers.ListProviders(svcs.Plans, logg))
			r.Put("/{providerId}", controllers.AdminUpdateProvider(svcs.Plans, logg))
		})

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", controllers.AdminCreatePlan(svcs.Plans, logg))
			r.Put("/{planId}", controllers.AdminUpdatePlan(svcs.Plans, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/settings", controllers.AdminGetNotificationSettings(svcs.Notifications, logg))
			r.Put("/settings", controllers.AdminUpdateNotificationSettings(svcs.Notifications, logg))
			r.Get("/low-balance-threshold", controllers.AdminGetLowBalanceThreshold(svcs.Notifications, logg))
			r.Put("/low-balance-threshold", controllers.AdminSetLowBalanceThreshold(svcs.Notifications, logg))
			r.Post("/low-balance-sweep", controllers.AdminTriggerLowBalanceSweep(svcs.Notifications, logg))
		})

		r.Route("/support/tickets", func(r chi.Router) {
			r.Get("/", controllers.ListSupportTickets(svcs.Support, logg))
			r.Get("/{ticketId}", controllers.GetSupportTicket(svcs.Support, logg))
			r.Put("/{ticketId}", controllers.AdminUpdateSupportTicket(svcs.Support, logg))
		})
	})

	return r
}
