package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserMargin assigns a commission percentage to a distributor or retailer.
// Unique per (admin, user); re-setting upserts the existing row.
type UserMargin struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AdminID          uuid.UUID       `gorm:"column:admin_id;type:uuid;not null;uniqueIndex:idx_user_margins_admin_user"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_margins_admin_user"`
	MarginPercentage decimal.Decimal `gorm:"column:margin_percentage;type:numeric(5,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (m *UserMargin) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
