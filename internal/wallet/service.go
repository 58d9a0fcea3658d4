package wallet

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns wallet balance mutation and transaction logging. Every
// mutation locks the wallet row, re-checks the balance under the lock, and
// writes the balance update together with exactly one transaction record.
type Service interface {
	Credit(ctx context.Context, input CreditInput) (*models.Wallet, error)
	Debit(ctx context.Context, input DebitInput) (*models.Wallet, error)
	Transfer(ctx context.Context, input TransferInput) error
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
	ListWallets(ctx context.Context, params pagination.Params) ([]WalletOverview, string, error)
	ListBelowBalance(ctx context.Context, threshold decimal.Decimal, roles []enums.UserRole) ([]LowBalanceWallet, error)
}

// CreditInput captures one balance increase request.
type CreditInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	ActorID     uuid.UUID
	ActorRole   enums.UserRole
	Description string
}

// DebitInput captures one balance decrease request.
type DebitInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	ActorID     uuid.UUID
	ActorRole   enums.UserRole
	Description string
}

// TransferInput moves funds between two wallets in one atomic scope.
type TransferInput struct {
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	Amount      decimal.Decimal
	ActorID     uuid.UUID
	ActorRole   enums.UserRole
	Description string
}

type service struct {
	db   TxRunner
	repo Repository
}

// NewService wires a wallet service with its transaction runner and repository.
func NewService(db TxRunner, repo Repository) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	return &service{db: db, repo: repo}, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.Wallet, error) {
	if err := validateMutation(input.UserID, input.ActorID, input.Amount); err != nil {
		return nil, err
	}
	// Only admins issue standalone credits; top-ups for non-admins arrive
	// through Transfer.
	switch input.ActorRole {
	case enums.UserRoleAdmin:
	case enums.UserRoleDistributor, enums.UserRoleRetailer, enums.UserRoleClient:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required to credit a wallet")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	var wallet *models.Wallet
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockWallet(ctx, repo, input.UserID, true)
		if err != nil {
			return err
		}
		if err := applyMutation(ctx, repo, locked, enums.WalletTransactionTypeCredit, input.Amount, input.ActorID, input.Description); err != nil {
			return err
		}
		wallet = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) Debit(ctx context.Context, input DebitInput) (*models.Wallet, error) {
	if err := validateMutation(input.UserID, input.ActorID, input.Amount); err != nil {
		return nil, err
	}
	switch input.ActorRole {
	case enums.UserRoleAdmin:
	case enums.UserRoleDistributor, enums.UserRoleRetailer, enums.UserRoleClient:
		if input.ActorID != input.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required to debit another user's wallet")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	var wallet *models.Wallet
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockWallet(ctx, repo, input.UserID, false)
		if err != nil {
			return err
		}
		if err := applyMutation(ctx, repo, locked, enums.WalletTransactionTypeDebit, input.Amount, input.ActorID, input.Description); err != nil {
			return err
		}
		wallet = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) Transfer(ctx context.Context, input TransferInput) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return TransferInTx(ctx, s.repo.WithTx(tx), input)
	})
}

// TransferInTx moves funds between two wallets using an already open
// transaction scope. Callers that need the transfer atomic with their own
// writes (payment settlement) bind their tx to the repository first.
func TransferInTx(ctx context.Context, repo Repository, input TransferInput) error {
	if err := validateMutation(input.FromUserID, input.ActorID, input.Amount); err != nil {
		return err
	}
	if input.ToUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "destination user id is required")
	}
	if input.FromUserID == input.ToUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer to the same wallet")
	}
	switch input.ActorRole {
	case enums.UserRoleAdmin:
	case enums.UserRoleDistributor, enums.UserRoleRetailer, enums.UserRoleClient:
		if input.ActorID != input.FromUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required to transfer from another user's wallet")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	// Lock both rows in a stable order so two opposing transfers cannot
	// deadlock. The destination is created lazily.
	var from, to *models.Wallet
	var err error
	if strings.Compare(input.FromUserID.String(), input.ToUserID.String()) < 0 {
		if from, err = lockWallet(ctx, repo, input.FromUserID, false); err != nil {
			return err
		}
		if to, err = lockWallet(ctx, repo, input.ToUserID, true); err != nil {
			return err
		}
	} else {
		if to, err = lockWallet(ctx, repo, input.ToUserID, true); err != nil {
			return err
		}
		if from, err = lockWallet(ctx, repo, input.FromUserID, false); err != nil {
			return err
		}
	}

	if err := applyMutation(ctx, repo, from, enums.WalletTransactionTypeDebit, input.Amount, input.ActorID, input.Description); err != nil {
		return err
	}
	return applyMutation(ctx, repo, to, enums.WalletTransactionTypeCredit, input.Amount, input.ActorID, input.Description)
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var wallet *models.Wallet
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockWallet(ctx, repo, userID, true)
		if err != nil {
			return err
		}
		wallet = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.WalletTransaction{}, "", nil
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListTransactions(ctx, wallet.ID, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// ListWallets pages every wallet with its owner, newest first. Role
// enforcement happens at the route layer; the service serves any caller.
func (s *service) ListWallets(ctx context.Context, params pagination.Params) ([]WalletOverview, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListWallets(ctx, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallets")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.WalletID})
	}
	return rows, next, nil
}

func (s *service) ListBelowBalance(ctx context.Context, threshold decimal.Decimal, roles []enums.UserRole) ([]LowBalanceWallet, error) {
	if threshold.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	if len(roles) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one role is required")
	}
	rows, err := s.repo.ListBelowBalance(ctx, threshold, roles)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low balance wallets")
	}
	return rows, nil
}

func validateMutation(userID, actorID uuid.UUID, amount decimal.Decimal) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

// lockWallet fetches the wallet under a row lock, optionally creating a
// zero-balance wallet when the user has none yet.
func lockWallet(ctx context.Context, repo Repository, userID uuid.UUID, createMissing bool) (*models.Wallet, error) {
	wallet, err := repo.GetByUserIDForUpdate(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	if !createMissing {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}

	// The insert is a no-op when a concurrent request created the wallet
	// first; either way the follow-up lock settles on the surviving row.
	created := &models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := repo.Create(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	locked, err := repo.GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	return locked, nil
}

// applyMutation performs the read-check-write step on an already locked
// wallet and appends the matching transaction record.
func applyMutation(ctx context.Context, repo Repository, wallet *models.Wallet, txnType enums.WalletTransactionType, amount decimal.Decimal, actorID uuid.UUID, description string) error {
	var balance decimal.Decimal
	switch txnType {
	case enums.WalletTransactionTypeCredit:
		balance = wallet.Balance.Add(amount)
	case enums.WalletTransactionTypeDebit:
		if wallet.Balance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet balance too low").
				WithDetails(map[string]any{
					"balance":   wallet.Balance.StringFixed(2),
					"requested": amount.StringFixed(2),
				})
		}
		balance = wallet.Balance.Sub(amount)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet transaction type")
	}

	if err := repo.UpdateBalance(ctx, wallet.ID, balance); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}
	if err := repo.CreateTransaction(ctx, &models.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        txnType,
		Amount:      amount,
		Description: description,
		CreatedBy:   actorID,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
	}
	wallet.Balance = balance
	return nil
}
