package auth

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
)

// OTPRepository persists one-time login codes.
type OTPRepository interface {
	Create(ctx context.Context, code *models.OTPCode) error
	// FindActive returns the newest unverified, unexpired code for the phone.
	FindActive(ctx context.Context, phone, code string, now time.Time) (*models.OTPCode, error)
	MarkVerified(ctx context.Context, code *models.OTPCode, at time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository returns an OTP repository bound to the provided database.
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, code *models.OTPCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *otpRepository) FindActive(ctx context.Context, phone, code string, now time.Time) (*models.OTPCode, error) {
	var row models.OTPCode
	if err := r.db.WithContext(ctx).
		Where("phone = ? AND code = ? AND verified = ? AND expires_at > ?", phone, code, false, now).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, code *models.OTPCode, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(code).
		Updates(map[string]any{"verified": true, "used_at": at}).Error
}

func (r *otpRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.OTPCode{})
	return res.RowsAffected, res.Error
}
