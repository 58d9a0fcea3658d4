package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

// Event is one business occurrence that may produce an in-app notification.
type Event struct {
	Kind      enums.NotificationEvent
	UserID    uuid.UUID
	RelatedID *uuid.UUID
	Data      map[string]string
}

// SettingsSnapshot is an immutable view of the platform notification policy,
// taken once per dispatch so a concurrent settings update cannot flip a
// toggle mid-decision.
type SettingsSnapshot struct {
	InApp  bool
	Events map[enums.NotificationEvent]bool
}

// Allows reports whether the event should reach the user's in-app feed.
func (s SettingsSnapshot) Allows(kind enums.NotificationEvent) bool {
	return s.InApp && s.Events[kind]
}

func snapshotFromModel(settings *models.NotificationSetting) SettingsSnapshot {
	return SettingsSnapshot{
		InApp: settings.InAppEnabled,
		Events: map[enums.NotificationEvent]bool{
			enums.NotificationEventRechargeSuccess:      settings.RechargeSuccess,
			enums.NotificationEventRechargeFailed:       settings.RechargeFailed,
			enums.NotificationEventNewUserRegistered:    settings.NewUserRegistered,
			enums.NotificationEventLowBalance:           settings.LowBalance,
			enums.NotificationEventMaintenanceScheduled: settings.MaintenanceScheduled,
			enums.NotificationEventSupportUpdated:       settings.SupportUpdated,
		},
	}
}

// SettingsSource yields the current policy snapshot for a dispatch.
type SettingsSource interface {
	Snapshot(ctx context.Context) (SettingsSnapshot, error)
}

// Dispatcher turns domain events into notification rows, honoring the
// platform settings snapshot.
type Dispatcher struct {
	repo     Repository
	settings SettingsSource
	logg     *logger.Logger
}

// NewDispatcher builds the event-to-notification dispatcher.
func NewDispatcher(repo Repository, settings SettingsSource, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{repo: repo, settings: settings, logg: logg}, nil
}

// Notify materializes a notification row for the event unless the current
// settings snapshot suppresses it. A suppressed event is not an error.
func (d *Dispatcher) Notify(ctx context.Context, event Event) error {
	if !event.Kind.IsValid() {
		return fmt.Errorf("invalid notification event %q", event.Kind)
	}
	if event.UserID == uuid.Nil {
		return fmt.Errorf("notification event requires a user id")
	}

	snapshot, err := d.settings.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load notification settings: %w", err)
	}
	if !snapshot.Allows(event.Kind) {
		d.logg.Info(d.logg.WithFields(ctx, map[string]any{
			"event":   string(event.Kind),
			"user_id": event.UserID.String(),
		}), "notification suppressed by settings")
		return nil
	}

	notificationType, title, message := renderEvent(event)
	return d.repo.Create(ctx, &models.Notification{
		UserID:    event.UserID,
		Type:      notificationType,
		Status:    enums.NotificationStatusSent,
		Title:     title,
		Message:   message,
		RelatedID: event.RelatedID,
	})
}

// UserRegistered posts the welcome notification for a freshly created account.
func (d *Dispatcher) UserRegistered(ctx context.Context, user *models.User) error {
	return d.Notify(ctx, Event{
		Kind:   enums.NotificationEventNewUserRegistered,
		UserID: user.ID,
		Data:   map[string]string{"first_name": user.FirstName},
	})
}

// RechargeCompleted posts the outcome of a recharge attempt.
func (d *Dispatcher) RechargeCompleted(ctx context.Context, purchase *models.PlanPurchase, success bool) error {
	kind := enums.NotificationEventRechargeSuccess
	if !success {
		kind = enums.NotificationEventRechargeFailed
	}
	related := purchase.ID
	data := map[string]string{
		"phone":          purchase.PhoneNumber,
		"amount":         purchase.Amount.StringFixed(2),
		"transaction_id": purchase.TransactionID,
	}
	if purchase.Plan != nil {
		data["plan_title"] = purchase.Plan.Title
	}
	return d.Notify(ctx, Event{
		Kind:      kind,
		UserID:    purchase.UserID,
		RelatedID: &related,
		Data:      data,
	})
}

// TicketUpdated posts a support ticket status change to the ticket owner.
func (d *Dispatcher) TicketUpdated(ctx context.Context, userID, ticketID uuid.UUID, status string) error {
	return d.Notify(ctx, Event{
		Kind:      enums.NotificationEventSupportUpdated,
		UserID:    userID,
		RelatedID: &ticketID,
		Data:      map[string]string{"status": status},
	})
}

func renderEvent(event Event) (enums.NotificationType, string, string) {
	data := func(key, fallback string) string {
		if v, ok := event.Data[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	switch event.Kind {
	case enums.NotificationEventRechargeSuccess:
		return enums.NotificationTypeRecharge,
			"Recharge successful",
			fmt.Sprintf("Your recharge of ₹%s for %s went through (ref %s).",
				data("amount", "0.00"), data("phone", "your number"), data("transaction_id", "n/a"))
	case enums.NotificationEventRechargeFailed:
		return enums.NotificationTypeRecharge,
			"Recharge failed",
			fmt.Sprintf("Your recharge of ₹%s for %s could not be completed. You can retry from your history (ref %s).",
				data("amount", "0.00"), data("phone", "your number"), data("transaction_id", "n/a"))
	case enums.NotificationEventNewUserRegistered:
		return enums.NotificationTypeUserRegistered,
			"Welcome to RechargeHub",
			fmt.Sprintf("Hi %s, your account is ready. Browse plans to get started.",
				data("first_name", "there"))
	case enums.NotificationEventLowBalance:
		return enums.NotificationTypeLowBalance,
			"Wallet balance low",
			fmt.Sprintf("Your wallet balance ₹%s has dropped below ₹%s. Top up to keep recharging.",
				data("balance", "0.00"), data("threshold", "0.00"))
	case enums.NotificationEventMaintenanceScheduled:
		return enums.NotificationTypeOther,
			"Scheduled maintenance",
			data("message", "The platform will undergo scheduled maintenance shortly.")
	case enums.NotificationEventSupportUpdated:
		return enums.NotificationTypeSupport,
			"Support ticket updated",
			fmt.Sprintf("Your support ticket is now %s.", data("status", "updated"))
	default:
		return enums.NotificationTypeOther, "Notification", data("message", "")
	}
}
