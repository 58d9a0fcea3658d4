package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// PlanPurchase records one recharge attempt and its payment outcome.
type PlanPurchase struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID          uuid.UUID            `gorm:"column:plan_id;type:uuid;not null;index"`
	Amount          decimal.Decimal      `gorm:"column:amount;type:numeric(10,2);not null"`
	PhoneNumber     string               `gorm:"column:phone_number;type:text;not null"`
	PaymentMethod   enums.PaymentMethod  `gorm:"column:payment_method;type:payment_method;not null;default:'online'"`
	PaymentStatus   enums.PurchaseStatus `gorm:"column:payment_status;type:purchase_status;not null;default:'pending'"`
	TransactionID   string               `gorm:"column:transaction_id;type:text;not null;uniqueIndex"`
	GatewayResponse json.RawMessage      `gorm:"column:gateway_response;type:jsonb"`
	CompletedAt     *time.Time           `gorm:"column:completed_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Plan *Plan `gorm:"foreignKey:PlanID"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (p *PlanPurchase) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
