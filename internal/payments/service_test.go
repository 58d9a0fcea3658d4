package payments

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rechargehub/rechargehub-backend/internal/wallet"
	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
)

const testKeySecret = "test-key-secret"

type paymentFixture struct {
	svc      Service
	wallets  wallet.Service
	platform uuid.UUID
}

func newFixture(t *testing.T) *paymentFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", filepath.Join(t.TempDir(), "payments.db"))
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.Wallet{}, &models.WalletTransaction{}, &models.PaymentOrder{}))

	walletRepo := wallet.NewRepository(client.DB())
	walletSvc, err := wallet.NewService(client, walletRepo)
	require.NoError(t, err)

	platform := uuid.New()
	svc, err := NewService(client, NewRepository(client.DB()), walletRepo, config.PaymentsConfig{
		GatewayKeyID:     "rzp_test_key",
		GatewayKeySecret: testKeySecret,
		Currency:         "INR",
		PlatformUserID:   platform.String(),
	})
	require.NoError(t, err)

	return &paymentFixture{svc: svc, wallets: walletSvc, platform: platform}
}

func (f *paymentFixture) fund(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := f.wallets.Credit(context.Background(), wallet.CreditInput{
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		ActorID:     uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
		Description: "seed",
	})
	require.NoError(t, err)
}

func TestCreateOrderPaiseConversion(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("499.50"))
	require.NoError(t, err)
	require.EqualValues(t, 49950, order.AmountPaise)
	require.Equal(t, "INR", order.Currency)
	require.Equal(t, "rzp_test_key", order.KeyID)
	require.Contains(t, order.OrderID, "order_")

	_, err = f.svc.CreateOrder(context.Background(), uuid.New(), decimal.Zero)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSettleMovesFundsToPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payer := uuid.New()
	f.fund(t, payer, "1000.00")

	order, err := f.svc.CreateOrder(ctx, payer, decimal.RequireFromString("250.00"))
	require.NoError(t, err)

	paymentID := "pay_" + uuid.NewString()[:14]
	settled, err := f.svc.Settle(ctx, SettleInput{
		OrderID:   order.OrderID,
		PaymentID: paymentID,
		Signature: SignSettlement(testKeySecret, order.OrderID, paymentID),
		ActorID:   payer,
		ActorRole: enums.UserRoleClient,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentOrderStatusSettled, settled.Status)
	require.NotNil(t, settled.SettledAt)
	require.Equal(t, paymentID, *settled.PaymentID)

	payerWallet, err := f.wallets.Balance(ctx, payer)
	require.NoError(t, err)
	require.True(t, payerWallet.Balance.Equal(decimal.RequireFromString("750.00")), "payer %s", payerWallet.Balance)

	platformWallet, err := f.wallets.Balance(ctx, f.platform)
	require.NoError(t, err)
	require.True(t, platformWallet.Balance.Equal(decimal.RequireFromString("250.00")))
}

func TestSettleRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payer := uuid.New()
	f.fund(t, payer, "1000.00")

	order, err := f.svc.CreateOrder(ctx, payer, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, SettleInput{
		OrderID:   order.OrderID,
		PaymentID: "pay_1",
		Signature: "deadbeef",
		ActorID:   payer,
		ActorRole: enums.UserRoleClient,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// Funds untouched.
	payerWallet, err := f.wallets.Balance(ctx, payer)
	require.NoError(t, err)
	require.True(t, payerWallet.Balance.Equal(decimal.RequireFromString("1000.00")))
}

func TestSettleExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payer := uuid.New()
	f.fund(t, payer, "500.00")

	order, err := f.svc.CreateOrder(ctx, payer, decimal.RequireFromString("200.00"))
	require.NoError(t, err)

	input := SettleInput{
		OrderID:   order.OrderID,
		PaymentID: "pay_once",
		Signature: SignSettlement(testKeySecret, order.OrderID, "pay_once"),
		ActorID:   payer,
		ActorRole: enums.UserRoleClient,
	}

	_, err = f.svc.Settle(ctx, input)
	require.NoError(t, err)

	// The replayed callback must not move funds again.
	_, err = f.svc.Settle(ctx, input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	payerWallet, err := f.wallets.Balance(ctx, payer)
	require.NoError(t, err)
	require.True(t, payerWallet.Balance.Equal(decimal.RequireFromString("300.00")))
}

func TestSettleInsufficientBalanceLeavesOrderOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payer := uuid.New()
	f.fund(t, payer, "50.00")

	order, err := f.svc.CreateOrder(ctx, payer, decimal.RequireFromString("200.00"))
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, SettleInput{
		OrderID:   order.OrderID,
		PaymentID: "pay_poor",
		Signature: SignSettlement(testKeySecret, order.OrderID, "pay_poor"),
		ActorID:   payer,
		ActorRole: enums.UserRoleClient,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientBalance, typed.Code())

	// The claim rolled back with the transfer, so a later funded attempt
	// can still settle.
	f.fund(t, payer, "500.00")
	settled, err := f.svc.Settle(ctx, SettleInput{
		OrderID:   order.OrderID,
		PaymentID: "pay_poor",
		Signature: SignSettlement(testKeySecret, order.OrderID, "pay_poor"),
		ActorID:   payer,
		ActorRole: enums.UserRoleClient,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentOrderStatusSettled, settled.Status)
}

func TestSettleForbiddenForOtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payer := uuid.New()
	f.fund(t, payer, "500.00")

	order, err := f.svc.CreateOrder(ctx, payer, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, SettleInput{
		OrderID:   order.OrderID,
		PaymentID: "pay_x",
		Signature: SignSettlement(testKeySecret, order.OrderID, "pay_x"),
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleClient,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}
