package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/internal/wallet"
	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// WalletLister surfaces wallets whose balance fell below a threshold.
type WalletLister interface {
	ListBelowBalance(ctx context.Context, threshold decimal.Decimal, roles []enums.UserRole) ([]wallet.LowBalanceWallet, error)
}

// Service defines notification feed, settings, and sweep operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	GetSettings(ctx context.Context) (*models.NotificationSetting, error)
	UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*models.NotificationSetting, error)
	GetThreshold(ctx context.Context) (decimal.Decimal, error)
	SetThreshold(ctx context.Context, input SetThresholdInput) (decimal.Decimal, error)
	SweepLowBalances(ctx context.Context) (*SweepResult, error)
	CleanupExpired(ctx context.Context) (int64, error)
	Dispatcher() *Dispatcher

	SettingsSource
}

type service struct {
	repo       Repository
	wallets    WalletLister
	cfg        config.NotificationsConfig
	logg       *logger.Logger
	dispatcher *Dispatcher
}

// ListParams configures pagination for the per-user notification feed.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// UpdateSettingsInput carries partial updates to the platform policy row.
// Only admins may change it.
type UpdateSettingsInput struct {
	ActorRole enums.UserRole

	InAppEnabled *bool
	EmailEnabled *bool
	SMSEnabled   *bool

	RechargeSuccess      *bool
	RechargeFailed       *bool
	NewUserRegistered    *bool
	LowBalance           *bool
	MaintenanceScheduled *bool
	SupportUpdated       *bool
}

// SetThresholdInput replaces the low balance alert floor.
type SetThresholdInput struct {
	ActorRole enums.UserRole
	Amount    decimal.Decimal
}

// SweepResult summarizes one low balance sweep run.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

// ServiceParams bundles notification service dependencies.
type ServiceParams struct {
	Repo    Repository
	Wallets WalletLister
	Config  config.NotificationsConfig
	Logger  *logger.Logger
}

// NewService wires the notification service and its dispatcher. The service
// itself is the dispatcher's settings source, so toggles flipped by an admin
// take effect on the next dispatch.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Wallets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet lister required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	s := &service{
		repo:    params.Repo,
		wallets: params.Wallets,
		cfg:     params.Config,
		logg:    params.Logger,
	}
	dispatcher, err := NewDispatcher(params.Repo, s, params.Logger)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build dispatcher")
	}
	s.dispatcher = dispatcher
	return s, nil
}

func (s *service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

// GetSettings returns the platform policy row, seeding it from config
// defaults the first time it is read.
func (s *service) GetSettings(ctx context.Context) (*models.NotificationSetting, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification settings")
	}

	seeded := &models.NotificationSetting{
		InAppEnabled:         s.cfg.DefaultInApp,
		EmailEnabled:         s.cfg.DefaultEmail,
		SMSEnabled:           s.cfg.DefaultSMS,
		RechargeSuccess:      true,
		RechargeFailed:       true,
		NewUserRegistered:    true,
		LowBalance:           true,
		MaintenanceScheduled: true,
		SupportUpdated:       true,
	}
	if err := s.repo.SaveSettings(ctx, seeded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed notification settings")
	}
	return seeded, nil
}

func (s *service) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*models.NotificationSetting, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change notification settings")
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&settings.InAppEnabled, input.InAppEnabled)
	apply(&settings.EmailEnabled, input.EmailEnabled)
	apply(&settings.SMSEnabled, input.SMSEnabled)
	apply(&settings.RechargeSuccess, input.RechargeSuccess)
	apply(&settings.RechargeFailed, input.RechargeFailed)
	apply(&settings.NewUserRegistered, input.NewUserRegistered)
	apply(&settings.LowBalance, input.LowBalance)
	apply(&settings.MaintenanceScheduled, input.MaintenanceScheduled)
	apply(&settings.SupportUpdated, input.SupportUpdated)

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save notification settings")
	}
	return settings, nil
}

// Snapshot implements SettingsSource for the dispatcher.
func (s *service) Snapshot(ctx context.Context) (SettingsSnapshot, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return SettingsSnapshot{}, err
	}
	return snapshotFromModel(settings), nil
}

// GetThreshold returns the stored low balance floor, falling back to the
// configured default when no row exists yet.
func (s *service) GetThreshold(ctx context.Context) (decimal.Decimal, error) {
	threshold, err := s.repo.GetThreshold(ctx)
	if err == nil {
		return threshold.Amount, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load low balance threshold")
	}
	fallback, err := s.cfg.LowBalanceThresholdAmount()
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse default threshold")
	}
	return fallback, nil
}

func (s *service) SetThreshold(ctx context.Context, input SetThresholdInput) (decimal.Decimal, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change the threshold")
	}
	if input.Amount.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}

	row, err := s.repo.GetThreshold(ctx)
	switch {
	case err == nil:
		row.Amount = input.Amount
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = &models.LowBalanceThreshold{Amount: input.Amount}
	default:
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load low balance threshold")
	}

	if err := s.repo.SaveThreshold(ctx, row); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save low balance threshold")
	}
	return row.Amount, nil
}

// SweepLowBalances alerts every distributor and retailer whose wallet sits
// below the threshold. Individual dispatch failures do not stop the sweep;
// they are aggregated and returned alongside the partial result.
func (s *service) SweepLowBalances(ctx context.Context) (*SweepResult, error) {
	threshold, err := s.GetThreshold(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.wallets.ListBelowBalance(ctx, threshold, []enums.UserRole{
		enums.UserRoleDistributor,
		enums.UserRoleRetailer,
	})
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(rows)}
	var errs error
	for _, row := range rows {
		walletID := row.WalletID
		err := s.dispatcher.Notify(ctx, Event{
			Kind:      enums.NotificationEventLowBalance,
			UserID:    row.UserID,
			RelatedID: &walletID,
			Data: map[string]string{
				"balance":   row.Balance.StringFixed(2),
				"threshold": threshold.StringFixed(2),
			},
		})
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("notify user %s: %w", row.UserID, err))
			continue
		}
		result.Notified++
	}

	if result.Failed > 0 {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"scanned":  result.Scanned,
			"notified": result.Notified,
			"failed":   result.Failed,
		}), "low balance sweep finished with failures")
	}
	return result, errs
}

// CleanupExpired deletes read notifications older than the retention window.
func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	retention := time.Duration(s.cfg.RetentionDays) * 24 * time.Hour
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired notifications")
	}
	return deleted, nil
}
