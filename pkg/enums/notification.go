package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeRecharge       NotificationType = "recharge"
	NotificationTypeSupport        NotificationType = "support"
	NotificationTypePromotion      NotificationType = "promotion"
	NotificationTypeAccount        NotificationType = "account"
	NotificationTypeUserRegistered NotificationType = "user_registered"
	NotificationTypeLowBalance     NotificationType = "low_balance"
	NotificationTypeOther          NotificationType = "other"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeRecharge,
	NotificationTypeSupport,
	NotificationTypePromotion,
	NotificationTypeAccount,
	NotificationTypeUserRegistered,
	NotificationTypeLowBalance,
	NotificationTypeOther,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationStatus tracks the delivery state of a notification row.
type NotificationStatus string

const (
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusRead      NotificationStatus = "read"
	NotificationStatusFailed    NotificationStatus = "failed"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusSent,
	NotificationStatusDelivered,
	NotificationStatusRead,
	NotificationStatusFailed,
}

// IsValid reports whether the value is a known NotificationStatus.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationStatus converts raw input into a NotificationStatus.
func ParseNotificationStatus(value string) (NotificationStatus, error) {
	for _, candidate := range validNotificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification status %q", value)
}
