package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// WalletTransaction records one immutable balance mutation. Rows are
// append-only; history views order by created_at descending.
type WalletTransaction struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	WalletID    uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type        enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Description string                      `gorm:"column:description;type:text;not null"`
	CreatedBy   uuid.UUID                   `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
