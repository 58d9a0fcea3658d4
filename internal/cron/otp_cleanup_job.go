package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

const otpRetention = 24 * time.Hour

type OTPCleanupJobParams struct {
	Logger    *logger.Logger
	OTPRepo   otpCleanupRepo
	Retention time.Duration
}

type otpCleanupRepo interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOTPCleanupJob removes verification codes that expired long enough ago
// that they can no longer matter for auditing a login attempt.
func NewOTPCleanupJob(params OTPCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.OTPRepo == nil {
		return nil, fmt.Errorf("otp repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = otpRetention
	}
	return &otpCleanupJob{
		logg:      params.Logger,
		repo:      params.OTPRepo,
		retention: retention,
		now:       time.Now,
	}, nil
}

type otpCleanupJob struct {
	logg      *logger.Logger
	repo      otpCleanupRepo
	retention time.Duration
	now       func() time.Time
}

func (j *otpCleanupJob) Name() string { return "otp-cleanup" }

func (j *otpCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("otp cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "otp cleanup complete")
	return nil
}
