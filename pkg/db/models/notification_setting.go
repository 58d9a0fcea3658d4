package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationSetting is the platform-wide notification policy row. A single
// row exists; services load it into an immutable snapshot per dispatch.
type NotificationSetting struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// No default tags on the toggles: gorm drops zero-value columns from
	// upserts when a default is tagged, so false would never persist.
	// Column defaults live in the SQL migration.
	InAppEnabled bool `gorm:"column:in_app_enabled;not null"`
	EmailEnabled bool `gorm:"column:email_enabled;not null"`
	SMSEnabled   bool `gorm:"column:sms_enabled;not null"`

	RechargeSuccess      bool `gorm:"column:recharge_success;not null"`
	RechargeFailed       bool `gorm:"column:recharge_failed;not null"`
	NewUserRegistered    bool `gorm:"column:new_user_registered;not null"`
	LowBalance           bool `gorm:"column:low_balance;not null"`
	MaintenanceScheduled bool `gorm:"column:maintenance_scheduled;not null"`
	SupportUpdated       bool `gorm:"column:support_updated;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (s *NotificationSetting) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
