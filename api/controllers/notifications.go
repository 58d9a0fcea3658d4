package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rechargehub/rechargehub-backend/api/responses"
	"github.com/rechargehub/rechargehub-backend/api/validators"
	"github.com/rechargehub/rechargehub-backend/internal/notifications"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

type updateNotificationSettingsRequest struct {
	InAppEnabled *bool `json:"in_app_enabled,omitempty"`
	EmailEnabled *bool `json:"email_enabled,omitempty"`
	SMSEnabled   *bool `json:"sms_enabled,omitempty"`

	RechargeSuccess      *bool `json:"recharge_success,omitempty"`
	RechargeFailed       *bool `json:"recharge_failed,omitempty"`
	NewUserRegistered    *bool `json:"new_user_registered,omitempty"`
	LowBalance           *bool `json:"low_balance,omitempty"`
	MaintenanceScheduled *bool `json:"maintenance_scheduled,omitempty"`
	SupportUpdated       *bool `json:"support_updated,omitempty"`
}

type setThresholdRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// ListNotifications pages the caller's notifications, optionally unread only.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly := false
		if raw := strings.TrimSpace(r.URL.Query().Get("unread")); raw != "" {
			unreadOnly, err = strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid unread value"))
				return
			}
		}
		result, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := pathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.UnreadCount(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

// AdminGetNotificationSettings returns the platform delivery policy.
func AdminGetNotificationSettings(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := svc.GetSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

// AdminUpdateNotificationSettings applies partial changes to the delivery policy.
func AdminUpdateNotificationSettings(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateNotificationSettingsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settings, err := svc.UpdateSettings(r.Context(), notifications.UpdateSettingsInput{
			ActorRole:            role,
			InAppEnabled:         req.InAppEnabled,
			EmailEnabled:         req.EmailEnabled,
			SMSEnabled:           req.SMSEnabled,
			RechargeSuccess:      req.RechargeSuccess,
			RechargeFailed:       req.RechargeFailed,
			NewUserRegistered:    req.NewUserRegistered,
			LowBalance:           req.LowBalance,
			MaintenanceScheduled: req.MaintenanceScheduled,
			SupportUpdated:       req.SupportUpdated,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

func AdminGetLowBalanceThreshold(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := svc.GetThreshold(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"amount": threshold.StringFixed(2)})
	}
}

func AdminSetLowBalanceThreshold(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setThresholdRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}
		threshold, err := svc.SetThreshold(r.Context(), notifications.SetThresholdInput{
			ActorRole: role,
			Amount:    amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"amount": threshold.StringFixed(2)})
	}
}

// AdminTriggerLowBalanceSweep runs the low balance scan on demand. Partial
// failures still return the counts so the operator can see what landed.
func AdminTriggerLowBalanceSweep(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.SweepLowBalances(r.Context())
		if err != nil && result == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil {
			ctx := logg.WithField(r.Context(), "failed", result.Failed)
			logg.Warn(ctx, "low balance sweep finished with failures")
		}
		responses.WriteSuccess(w, result)
	}
}
