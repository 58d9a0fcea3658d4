package margins

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// MarginEntry is a margin row joined with the target user for listings.
type MarginEntry struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Email            string
	FirstName        string
	LastName         string
	Role             enums.UserRole
	MarginPercentage decimal.Decimal
}

// Repository manages persistence for per-user commission margins.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Upsert inserts the margin or updates the percentage when the
	// (admin_id, user_id) pair already exists.
	Upsert(ctx context.Context, margin *models.UserMargin) error
	Get(ctx context.Context, adminID, userID uuid.UUID) (*models.UserMargin, error)
	ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]MarginEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a margin repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, margin *models.UserMargin) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "admin_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"margin_percentage", "updated_at"}),
		}).
		Create(margin).Error
}

func (r *repository) Get(ctx context.Context, adminID, userID uuid.UUID) (*models.UserMargin, error) {
	var margin models.UserMargin
	if err := r.db.WithContext(ctx).
		Where("admin_id = ? AND user_id = ?", adminID, userID).
		First(&margin).Error; err != nil {
		return nil, err
	}
	return &margin, nil
}

func (r *repository) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]MarginEntry, error) {
	var rows []MarginEntry
	if err := r.db.WithContext(ctx).
		Table("user_margins").
		Select("user_margins.id, users.id AS user_id, users.email, users.first_name, users.last_name, users.role, user_margins.margin_percentage").
		Joins("JOIN users ON users.id = user_margins.user_id").
		Where("user_margins.admin_id = ?", adminID).
		Order("users.email ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
