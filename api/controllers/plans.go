package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rechargehub/rechargehub-backend/api/responses"
	"github.com/rechargehub/rechargehub-backend/api/validators"
	"github.com/rechargehub/rechargehub-backend/internal/plans"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

type createProviderRequest struct {
	Title string `json:"title" validate:"required,max=120"`
}

type updateProviderRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,max=120"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type createPlanRequest struct {
	ProviderID   uuid.UUID `json:"provider_id" validate:"required"`
	Title        string    `json:"title" validate:"required,max=200"`
	Description  string    `json:"description" validate:"omitempty,max=2000"`
	ValidityDays int       `json:"validity_days" validate:"required,min=1"`
	Amount       string    `json:"amount" validate:"required"`
	Identifier   string    `json:"identifier" validate:"required,max=80"`
}

type updatePlanRequest struct {
	Title        *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ValidityDays *int    `json:"validity_days,omitempty" validate:"omitempty,min=1"`
	Amount       *string `json:"amount,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// ListProviders returns the provider catalog. Clients see active providers;
// pass all=true (admin surface) to include disabled ones.
func ListProviders(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := true
		if raw := strings.TrimSpace(r.URL.Query().Get("all")); raw != "" {
			all, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid all value"))
				return
			}
			activeOnly = !all
		}
		items, err := svc.ListProviders(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ListPlans filters the plan catalog by provider, text, and ordering.
func ListPlans(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := plans.ListFilter{
			ActiveOnly: true,
			Search:     strings.TrimSpace(r.URL.Query().Get("q")),
			OrderBy:    strings.TrimSpace(r.URL.Query().Get("order_by")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("provider_id")); raw != "" {
			providerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider_id"))
				return
			}
			filter.ProviderID = &providerID
		}
		items, cursor, err := svc.ListPlans(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "cursor": cursor})
	}
}

func GetPlan(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, err := pathUUID(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.GetPlan(r.Context(), planID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

func AdminCreateProvider(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProviderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provider, err := svc.CreateProvider(r.Context(), req.Title)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, provider)
	}
}

func AdminUpdateProvider(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := pathUUID(r, "providerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateProviderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provider, err := svc.UpdateProvider(r.Context(), providerID, plans.UpdateProviderInput{
			Title:    req.Title,
			IsActive: req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, provider)
	}
}

func AdminCreatePlan(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPlanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}
		plan, err := svc.CreatePlan(r.Context(), plans.CreatePlanInput{
			ProviderID:   req.ProviderID,
			Title:        req.Title,
			Description:  req.Description,
			ValidityDays: req.ValidityDays,
			Amount:       amount,
			Identifier:   req.Identifier,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

func AdminUpdatePlan(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, err := pathUUID(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updatePlanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := plans.UpdatePlanInput{
			Title:        req.Title,
			Description:  req.Description,
			ValidityDays: req.ValidityDays,
			IsActive:     req.IsActive,
		}
		if req.Amount != nil {
			amount, err := decimal.NewFromString(strings.TrimSpace(*req.Amount))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
				return
			}
			input.Amount = &amount
		}
		plan, err := svc.UpdatePlan(r.Context(), planID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}
