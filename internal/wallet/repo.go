package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// LowBalanceWallet pairs a wallet with enough owner data to alert them.
type LowBalanceWallet struct {
	WalletID  uuid.UUID
	UserID    uuid.UUID
	Email     string
	FirstName string
	Role      enums.UserRole
	Balance   decimal.Decimal
}

// WalletOverview pairs a wallet with its owner for admin audit views.
type WalletOverview struct {
	WalletID  uuid.UUID       `json:"wallet_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      enums.UserRole  `json:"role"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository manages persistence for wallets and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	// GetByUserIDForUpdate locks the wallet row for the remainder of the
	// surrounding transaction.
	GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Create(ctx context.Context, wallet *models.Wallet) error
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
	CountTransactions(ctx context.Context, walletID uuid.UUID) (int64, error)
	// ListBelowBalance returns wallets under the threshold whose owners
	// hold one of the given roles.
	ListBelowBalance(ctx context.Context, threshold decimal.Decimal, roles []enums.UserRole) ([]LowBalanceWallet, error)
	ListWallets(ctx context.Context, cursor *pagination.Cursor, limit int) ([]WalletOverview, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) GetByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	query := r.db.WithContext(ctx)
	// sqlite has no FOR UPDATE; its write transactions already hold an
	// exclusive database lock.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var wallet models.Wallet
	if err := query.
		Where("user_id = ?", userID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Create inserts the wallet, skipping silently when the user already has
// one. DO NOTHING keeps the surrounding transaction usable on postgres,
// where a unique violation would otherwise abort it.
func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(wallet).Error
}

func (r *repository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		UpdateColumn("balance", balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var txns []models.WalletTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) CountTransactions(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("wallet_id = ?", walletID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListWallets(ctx context.Context, cursor *pagination.Cursor, limit int) ([]WalletOverview, error) {
	query := r.db.WithContext(ctx).
		Table("wallets").
		Select("wallets.id AS wallet_id, users.id AS user_id, users.email, users.first_name, users.last_name, users.role, wallets.balance, wallets.created_at").
		Joins("JOIN users ON users.id = wallets.user_id").
		Order("wallets.created_at DESC, wallets.id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where("(wallets.created_at, wallets.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []WalletOverview
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListBelowBalance(ctx context.Context, threshold decimal.Decimal, roles []enums.UserRole) ([]LowBalanceWallet, error) {
	var rows []LowBalanceWallet
	if err := r.db.WithContext(ctx).
		Table("wallets").
		Select("wallets.id AS wallet_id, users.id AS user_id, users.email, users.first_name, users.role, wallets.balance").
		Joins("JOIN users ON users.id = wallets.user_id").
		Where("users.role IN ?", roles).
		Where("users.is_active = ?", true).
		Where("wallets.balance < ?", threshold).
		Order("wallets.balance ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
