package purchases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// HistoryFilter narrows a user's purchase history.
type HistoryFilter struct {
	Status     *enums.PurchaseStatus
	From       *time.Time
	To         *time.Time
	Search     string
	ProviderID *uuid.UUID
	OrderBy    string
}

// Repository manages persistence for plan purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.PlanPurchase) error
	Get(ctx context.Context, id uuid.UUID) (*models.PlanPurchase, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PlanPurchase, error)
	Update(ctx context.Context, id uuid.UUID, values map[string]any) error
	History(ctx context.Context, userID uuid.UUID, filter HistoryFilter, cursor *pagination.Cursor, limit int) ([]models.PlanPurchase, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.PlanPurchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.PlanPurchase, error) {
	var purchase models.PlanPurchase
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Plan.Provider").
		First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PlanPurchase, error) {
	var purchase models.PlanPurchase
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Plan.Provider").
		Where("id = ? AND user_id = ?", id, userID).
		First(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PlanPurchase{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) History(ctx context.Context, userID uuid.UUID, filter HistoryFilter, cursor *pagination.Cursor, limit int) ([]models.PlanPurchase, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PlanPurchase{}).
		Preload("Plan").
		Preload("Plan.Provider").
		Joins("JOIN plans ON plans.id = plan_purchases.plan_id").
		Joins("JOIN providers ON providers.id = plans.provider_id").
		Where("plan_purchases.user_id = ?", userID).
		Limit(limit)

	switch filter.OrderBy {
	case "amount":
		query = query.Order("plan_purchases.amount DESC, plan_purchases.id DESC")
	case "payment_status":
		query = query.Order("plan_purchases.payment_status ASC, plan_purchases.created_at DESC")
	default:
		query = query.Order("plan_purchases.created_at DESC, plan_purchases.id DESC")
		if cursor != nil {
			query = query.Where("(plan_purchases.created_at, plan_purchases.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	if filter.Status != nil {
		query = query.Where("plan_purchases.payment_status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("plan_purchases.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("plan_purchases.created_at <= ?", *filter.To)
	}
	if filter.ProviderID != nil {
		query = query.Where("plans.provider_id = ?", *filter.ProviderID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(plans.title) LIKE ? OR LOWER(providers.title) LIKE ? OR LOWER(plan_purchases.transaction_id) LIKE ? OR plan_purchases.phone_number LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var purchases []models.PlanPurchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
