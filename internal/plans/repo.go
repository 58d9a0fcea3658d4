package plans

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// ListFilter narrows plan listings.
type ListFilter struct {
	ProviderID *uuid.UUID
	ActiveOnly bool
	Search     string
	OrderBy    string
}

// Repository manages persistence for providers and their recharge plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProvider(ctx context.Context, provider *models.Provider) error
	GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, values map[string]any) error
	ListProviders(ctx context.Context, activeOnly bool) ([]models.Provider, error)

	CreatePlan(ctx context.Context, plan *models.Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, values map[string]any) error
	ListPlans(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Plan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProvider(ctx context.Context, provider *models.Provider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

func (r *repository) GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	if err := r.db.WithContext(ctx).First(&provider, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *repository) UpdateProvider(ctx context.Context, id uuid.UUID, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Provider{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) ListProviders(ctx context.Context, activeOnly bool) ([]models.Provider, error) {
	query := r.db.WithContext(ctx).Order("title ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var providers []models.Provider
	if err := query.Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *repository) CreatePlan(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Preload("Provider").
		First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) UpdatePlan(ctx context.Context, id uuid.UUID, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) ListPlans(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Plan, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Plan{}).
		Preload("Provider").
		Limit(limit)

	switch filter.OrderBy {
	case "amount":
		query = query.Order("amount ASC, id DESC")
	case "amount_desc":
		query = query.Order("amount DESC, id DESC")
	default:
		query = query.Order("created_at DESC, id DESC")
		if cursor != nil {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	if filter.ProviderID != nil {
		query = query.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(identifier) LIKE ?", pattern, pattern)
	}

	var plans []models.Plan
	if err := query.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
