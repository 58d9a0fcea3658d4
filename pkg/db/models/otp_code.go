package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPCode stores one-time login codes for phone-based auth. A code is
// single-use: Verified flips on first successful check.
type OTPCode struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Phone     string     `gorm:"column:phone;type:text;not null;index"`
	Code      string     `gorm:"column:code;type:text;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	Verified  bool       `gorm:"column:verified;not null;default:false"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (o *OTPCode) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
