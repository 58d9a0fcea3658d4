package support

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// ListFilter narrows ticket listings.
type ListFilter struct {
	// UserID scopes to one owner; uuid.Nil lists all (admin only).
	UserID uuid.UUID
	Status *enums.SupportStatus
}

// Repository manages persistence for support tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.SupportTicket) error
	Get(ctx context.Context, id uuid.UUID) (*models.SupportTicket, error)
	Update(ctx context.Context, id uuid.UUID, values map[string]any) error
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.SupportTicket, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a support ticket repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.SupportTicket, error) {
	query := r.db.WithContext(ctx).Model(&models.SupportTicket{})
	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var tickets []models.SupportTicket
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&tickets).Error
	return tickets, err
}
