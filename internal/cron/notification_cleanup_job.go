package cron

import (
	"context"
	"fmt"

	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationsCleaner
}

type notificationsCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// NewNotificationCleanupJob drops read notifications older than the
// retention window configured on the notifications service.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &notificationCleanupJob{
		logg:          params.Logger,
		notifications: params.Notifications,
	}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	notifications notificationsCleaner
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.notifications.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
