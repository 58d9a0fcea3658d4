package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/internal/wallet"
	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
)

const orderIDPrefix = "order_"

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderResponse is what the client needs to open the gateway checkout.
type OrderResponse struct {
	OrderID     string `json:"order_id"`
	AmountPaise int64  `json:"amount_paise"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// SettleInput redeems a gateway callback against a pending order.
type SettleInput struct {
	OrderID   string
	PaymentID string
	Signature string
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

// Service bridges gateway top-ups into the wallet ledger.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*OrderResponse, error)
	Settle(ctx context.Context, input SettleInput) (*models.PaymentOrder, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]models.PaymentOrder, error)
}

type service struct {
	db         TxRunner
	repo       Repository
	wallets    wallet.Repository
	cfg        config.PaymentsConfig
	platformID uuid.UUID
}

// NewService wires the payment bridge. The platform user configured in
// PaymentsConfig receives every settled top-up.
func NewService(db TxRunner, repo Repository, wallets wallet.Repository, cfg config.PaymentsConfig) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment order repository required")
	}
	if wallets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	platformID, err := uuid.Parse(cfg.PlatformUserID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "valid platform user id required")
	}
	return &service{
		db:         db,
		repo:       repo,
		wallets:    wallets,
		cfg:        cfg,
		platformID: platformID,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*OrderResponse, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	order := &models.PaymentOrder{
		UserID:      userID,
		OrderID:     newOrderID(),
		Amount:      amount,
		AmountPaise: amount.Shift(2).IntPart(),
		Currency:    s.cfg.Currency,
		Status:      enums.PaymentOrderStatusCreated,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment order")
	}

	return &OrderResponse{
		OrderID:     order.OrderID,
		AmountPaise: order.AmountPaise,
		Currency:    order.Currency,
		KeyID:       s.cfg.GatewayKeyID,
	}, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput) (*models.PaymentOrder, error) {
	orderID := strings.TrimSpace(input.OrderID)
	paymentID := strings.TrimSpace(input.PaymentID)
	if orderID == "" || paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and payment id are required")
	}
	if !VerifySettlementSignature(s.cfg.GatewayKeySecret, orderID, paymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment signature")
	}

	order, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment order")
	}
	if input.ActorRole != enums.UserRoleAdmin && input.ActorID != order.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot settle another user's order")
	}

	// The status flip and the wallet transfer commit together, so a
	// replayed callback can never move funds twice.
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.repo.WithTx(tx).ClaimSettlement(ctx, orderID, paymentID, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment order")
		}
		if claimed == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment order already settled")
		}

		return wallet.TransferInTx(ctx, s.wallets.WithTx(tx), wallet.TransferInput{
			FromUserID:  order.UserID,
			ToUserID:    s.platformID,
			Amount:      order.Amount,
			ActorID:     order.UserID,
			ActorRole:   enums.UserRoleClient,
			Description: "gateway settlement " + orderID,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByOrderID(ctx, orderID)
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.PaymentOrder, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	orders, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment orders")
	}
	return orders, nil
}

func newOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderIDPrefix + hex[:14]
}
