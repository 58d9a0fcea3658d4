package enums

import "fmt"

// NotificationEvent names a business event that may produce a notification.
// Each event has an on/off toggle in the platform notification settings.
type NotificationEvent string

const (
	NotificationEventRechargeSuccess      NotificationEvent = "recharge_success"
	NotificationEventRechargeFailed       NotificationEvent = "recharge_failed"
	NotificationEventNewUserRegistered    NotificationEvent = "new_user_registered"
	NotificationEventLowBalance           NotificationEvent = "low_balance"
	NotificationEventMaintenanceScheduled NotificationEvent = "maintenance_scheduled"
	NotificationEventSupportUpdated       NotificationEvent = "support_updated"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventRechargeSuccess,
	NotificationEventRechargeFailed,
	NotificationEventNewUserRegistered,
	NotificationEventLowBalance,
	NotificationEventMaintenanceScheduled,
	NotificationEventSupportUpdated,
}

// IsValid reports whether the value is a known NotificationEvent.
func (e NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw input into a NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}

// NotificationChannel identifies a delivery channel toggle.
type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "in_app"
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelSMS   NotificationChannel = "sms"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelInApp,
	NotificationChannelEmail,
	NotificationChannelSMS,
}

// IsValid reports whether the value is a known NotificationChannel.
func (c NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseNotificationChannel converts raw input into a NotificationChannel.
func ParseNotificationChannel(value string) (NotificationChannel, error) {
	for _, candidate := range validNotificationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification channel %q", value)
}
