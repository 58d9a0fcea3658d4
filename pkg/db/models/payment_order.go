package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// PaymentOrder tracks a gateway order awaiting settlement. AmountPaise
// mirrors the gateway representation (minor units) of Amount.
type PaymentOrder struct {
	ID          uuid.UUID                `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID     string                   `gorm:"column:order_id;type:text;not null;uniqueIndex"`
	Amount      decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	AmountPaise int64                    `gorm:"column:amount_paise;not null"`
	Currency    string                   `gorm:"column:currency;type:text;not null;default:'INR'"`
	Status      enums.PaymentOrderStatus `gorm:"column:status;type:payment_order_status;not null;default:'created'"`
	PaymentID   *string                  `gorm:"column:payment_id;type:text"`
	SettledAt   *time.Time               `gorm:"column:settled_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (p *PaymentOrder) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
