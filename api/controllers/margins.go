package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rechargehub/rechargehub-backend/api/responses"
	"github.com/rechargehub/rechargehub-backend/api/validators"
	"github.com/rechargehub/rechargehub-backend/internal/margins"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

type setMarginRequest struct {
	UserID           uuid.UUID `json:"user_id" validate:"required"`
	MarginPercentage string    `json:"margin_percentage" validate:"required"`
}

// AdminSetMargin assigns or replaces a commission margin for a user.
func AdminSetMargin(svc margins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setMarginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(req.MarginPercentage))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "margin_percentage must be a decimal string"))
			return
		}
		margin, err := svc.SetMargin(r.Context(), margins.SetMarginInput{
			AdminID:          adminID,
			ActorRole:        role,
			UserID:           req.UserID,
			MarginPercentage: pct,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, margin)
	}
}

// AdminGetMargin returns one user's margin under the calling admin.
func AdminGetMargin(svc margins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		margin, err := svc.GetMargin(r.Context(), adminID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, margin)
	}
}

// AdminListMargins lists every margin the calling admin has assigned.
func AdminListMargins(svc margins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListMargins(r.Context(), adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}
