package cron

import (
	"context"
	"fmt"

	"github.com/rechargehub/rechargehub-backend/internal/notifications"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

type LowBalanceJobParams struct {
	Logger  *logger.Logger
	Sweeper lowBalanceSweeper
}

type lowBalanceSweeper interface {
	SweepLowBalances(ctx context.Context) (*notifications.SweepResult, error)
}

// NewLowBalanceJob alerts distributors and retailers whose wallet balance
// dropped below the configured threshold.
func NewLowBalanceJob(params LowBalanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("low balance sweeper required")
	}
	return &lowBalanceJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type lowBalanceJob struct {
	logg    *logger.Logger
	sweeper lowBalanceSweeper
}

func (j *lowBalanceJob) Name() string { return "low-balance-sweep" }

func (j *lowBalanceJob) Run(ctx context.Context) error {
	result, err := j.sweeper.SweepLowBalances(ctx)
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"scanned":  result.Scanned,
			"notified": result.Notified,
			"failed":   result.Failed,
		})
		j.logg.Info(logCtx, "low balance sweep finished")
	}
	if err != nil {
		// Partial failures surface here so the run is recorded as failed,
		// but successfully notified users already have their alert.
		return fmt.Errorf("low balance sweep: %w", err)
	}
	return nil
}
