package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// Repository manages persistence for gateway payment orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PaymentOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentOrder, error)
	// ClaimSettlement flips the order from created to settled and records
	// the payment id. Returns the number of rows claimed: zero means the
	// order was already settled or failed.
	ClaimSettlement(ctx context.Context, orderID, paymentID string, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment order repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentOrder, error) {
	var orders []models.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ClaimSettlement(ctx context.Context, orderID, paymentID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentOrderStatusCreated).
		Updates(map[string]any{
			"status":     enums.PaymentOrderStatusSettled,
			"payment_id": paymentID,
			"settled_at": at,
		})
	return res.RowsAffected, res.Error
}
