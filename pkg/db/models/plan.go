package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a recharge offering tied to a provider.
type Plan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProviderID   uuid.UUID       `gorm:"column:provider_id;type:uuid;not null;index"`
	Title        string          `gorm:"column:title;type:text;not null"`
	Description  string          `gorm:"column:description;type:text;not null"`
	ValidityDays int             `gorm:"column:validity_days;not null"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	Identifier   string          `gorm:"column:identifier;type:text;not null;uniqueIndex"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Provider *Provider `gorm:"foreignKey:ProviderID"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (p *Plan) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
