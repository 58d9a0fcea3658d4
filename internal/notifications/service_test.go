package notifications

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/rechargehub/rechargehub-backend/internal/wallet"
	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

type fakeWalletLister struct {
	rows []wallet.LowBalanceWallet
	err  error
}

func (f *fakeWalletLister) ListBelowBalance(_ context.Context, _ decimal.Decimal, _ []enums.UserRole) ([]wallet.LowBalanceWallet, error) {
	return f.rows, f.err
}

type notifyFixture struct {
	svc    Service
	repo   Repository
	lister *fakeWalletLister
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", filepath.Join(t.TempDir(), "notifications.db"))
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(
		&models.Notification{},
		&models.NotificationSetting{},
		&models.LowBalanceThreshold{},
	))

	repo := NewRepository(client.DB())
	lister := &fakeWalletLister{}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Wallets: lister,
		Config: config.NotificationsConfig{
			DefaultInApp:        true,
			LowBalanceThreshold: "10000",
			RetentionDays:       30,
		},
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)

	return &notifyFixture{svc: svc, repo: repo, lister: lister}
}

func TestDispatcherRespectsSettings(t *testing.T) {
	f := newNotifyFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	purchase := &models.PlanPurchase{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        decimal.RequireFromString("239.00"),
		PhoneNumber:   "+919876543210",
		TransactionID: "TXN-abc123",
	}

	require.NoError(t, f.svc.Dispatcher().RechargeCompleted(ctx, purchase, true))

	list, err := f.svc.List(ctx, ListParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, enums.NotificationTypeRecharge, list.Items[0].Type)
	require.Contains(t, list.Items[0].Message, "239.00")
	require.Contains(t, list.Items[0].Message, "TXN-abc123")

	// Turning off the failure toggle suppresses only failure events.
	off := false
	_, err = f.svc.UpdateSettings(ctx, UpdateSettingsInput{
		ActorRole:      enums.UserRoleAdmin,
		RechargeFailed: &off,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Dispatcher().RechargeCompleted(ctx, purchase, false))
	list, err = f.svc.List(ctx, ListParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	// Disabling the in-app channel silences everything.
	_, err = f.svc.UpdateSettings(ctx, UpdateSettingsInput{
		ActorRole:    enums.UserRoleAdmin,
		InAppEnabled: &off,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Dispatcher().RechargeCompleted(ctx, purchase, true))
	list, err = f.svc.List(ctx, ListParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
}

func TestUpdateSettingsPersistsDisabledToggles(t *testing.T) {
	f := newNotifyFixture(t)
	ctx := context.Background()

	off := false
	_, err := f.svc.UpdateSettings(ctx, UpdateSettingsInput{
		ActorRole:       enums.UserRoleAdmin,
		InAppEnabled:    &off,
		RechargeSuccess: &off,
	})
	require.NoError(t, err)

	// Read back through the repository: false values must survive the
	// upsert, not be silently dropped from the column list.
	row, err := f.repo.GetSettings(ctx)
	require.NoError(t, err)
	require.False(t, row.InAppEnabled)
	require.False(t, row.RechargeSuccess)
	require.True(t, row.RechargeFailed, "untouched toggles keep their value")
}

func TestUpdateSettingsRequiresAdmin(t *testing.T) {
	f := newNotifyFixture(t)

	on := true
	_, err := f.svc.UpdateSettings(context.Background(), UpdateSettingsInput{
		ActorRole:    enums.UserRoleRetailer,
		EmailEnabled: &on,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestMarkReadFlow(t *testing.T) {
	f := newNotifyFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	user := &models.User{ID: userID, FirstName: "Asha"}
	require.NoError(t, f.svc.Dispatcher().UserRegistered(ctx, user))
	require.NoError(t, f.svc.Dispatcher().TicketUpdated(ctx, userID, uuid.New(), "resolved"))

	count, err := f.svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	list, err := f.svc.List(ctx, ListParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)

	require.NoError(t, f.svc.MarkRead(ctx, userID, list.Items[0].ID))

	count, err = f.svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	list, err = f.svc.List(ctx, ListParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	var readCount int
	for _, item := range list.Items {
		if item.ReadAt != nil {
			require.Equal(t, enums.NotificationStatusRead, item.Status)
			readCount++
		}
	}
	require.Equal(t, 1, readCount)

	// Marking a stranger's notification reports not found, not success.
	err = f.svc.MarkRead(ctx, uuid.New(), list.Items[1].ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	updated, err := f.svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	count, err = f.svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestThresholdDefaultAndUpdate(t *testing.T) {
	f := newNotifyFixture(t)
	ctx := context.Background()

	threshold, err := f.svc.GetThreshold(ctx)
	require.NoError(t, err)
	require.True(t, threshold.Equal(decimal.RequireFromString("10000")))

	_, err = f.svc.SetThreshold(ctx, SetThresholdInput{
		ActorRole: enums.UserRoleDistributor,
		Amount:    decimal.RequireFromString("500"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	updated, err := f.svc.SetThreshold(ctx, SetThresholdInput{
		ActorRole: enums.UserRoleAdmin,
		Amount:    decimal.RequireFromString("500"),
	})
	require.NoError(t, err)
	require.True(t, updated.Equal(decimal.RequireFromString("500")))

	threshold, err = f.svc.GetThreshold(ctx)
	require.NoError(t, err)
	require.True(t, threshold.Equal(decimal.RequireFromString("500")))
}

// failOnceRepo fails Create for one target user so a sweep hits a partial
// delivery failure.
type failOnceRepo struct {
	Repository
	failFor uuid.UUID
}

func (f *failOnceRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.UserID == f.failFor {
		return fmt.Errorf("simulated write failure")
	}
	return f.Repository.Create(ctx, notification)
}

func TestSweepLowBalancesAggregatesFailures(t *testing.T) {
	f := newNotifyFixture(t)
	ctx := context.Background()

	healthy := uuid.New()
	broken := uuid.New()
	f.lister.rows = []wallet.LowBalanceWallet{
		{WalletID: uuid.New(), UserID: healthy, Role: enums.UserRoleRetailer, Balance: decimal.RequireFromString("12.50")},
		{WalletID: uuid.New(), UserID: broken, Role: enums.UserRoleDistributor, Balance: decimal.RequireFromString("3.00")},
	}

	svc, err := NewService(ServiceParams{
		Repo:    &failOnceRepo{Repository: f.repo, failFor: broken},
		Wallets: f.lister,
		Config: config.NotificationsConfig{
			DefaultInApp:        true,
			LowBalanceThreshold: "100",
			RetentionDays:       30,
		},
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)

	result, err := svc.SweepLowBalances(ctx)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.NotNil(t, result)
	require.Equal(t, 2, result.Scanned)
	require.Equal(t, 1, result.Notified)
	require.Equal(t, 1, result.Failed)

	list, err := f.svc.List(ctx, ListParams{UserID: healthy, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, enums.NotificationTypeLowBalance, list.Items[0].Type)
	require.Contains(t, list.Items[0].Message, "12.50")
	require.Contains(t, list.Items[0].Message, "100.00")
}

func TestSweepAllHealthy(t *testing.T) {
	f := newNotifyFixture(t)

	f.lister.rows = []wallet.LowBalanceWallet{
		{WalletID: uuid.New(), UserID: uuid.New(), Role: enums.UserRoleRetailer, Balance: decimal.RequireFromString("50.00")},
	}

	result, err := f.svc.SweepLowBalances(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Scanned)
	require.Equal(t, 1, result.Notified)
	require.Equal(t, 0, result.Failed)
}
