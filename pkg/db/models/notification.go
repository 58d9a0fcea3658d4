package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID        uuid.UUID                `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType   `gorm:"column:type;type:notification_type;not null"`
	Status    enums.NotificationStatus `gorm:"column:status;type:notification_status;not null;default:'sent'"`
	Title     string                   `gorm:"column:title;type:text;not null"`
	Message   string                   `gorm:"column:message;type:text;not null"`
	RelatedID *uuid.UUID               `gorm:"column:related_id;type:uuid"`
	ReadAt    *time.Time               `gorm:"column:read_at"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
