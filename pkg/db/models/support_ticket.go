package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/enums"
)

// SupportTicket tracks a user-reported issue, optionally tied to a purchase.
type SupportTicket struct {
	ID              uuid.UUID              `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	PurchaseID      *uuid.UUID             `gorm:"column:purchase_id;type:uuid"`
	Subject         string                 `gorm:"column:subject;type:text;not null"`
	Description     string                 `gorm:"column:description;type:text;not null"`
	IssueType       enums.SupportIssueType `gorm:"column:issue_type;type:support_issue_type;not null"`
	Status          enums.SupportStatus    `gorm:"column:status;type:support_status;not null;default:'open'"`
	AssignedTo      *uuid.UUID             `gorm:"column:assigned_to;type:uuid"`
	ResolutionNotes *string                `gorm:"column:resolution_notes;type:text"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the driver has no uuid default.
func (s *SupportTicket) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
