package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rechargehub/rechargehub-backend/api/responses"
	"github.com/rechargehub/rechargehub-backend/api/validators"
	"github.com/rechargehub/rechargehub-backend/internal/support"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
)

type createTicketRequest struct {
	PurchaseID  *uuid.UUID `json:"purchase_id,omitempty"`
	Subject     string     `json:"subject" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=5000"`
	IssueType   string     `json:"issue_type" validate:"required"`
}

type updateTicketRequest struct {
	Status          *string    `json:"status,omitempty"`
	AssignedTo      *uuid.UUID `json:"assigned_to,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty" validate:"omitempty,max=5000"`
}

// CreateSupportTicket opens a ticket, optionally tied to one of the
// caller's purchases.
func CreateSupportTicket(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createTicketRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		issueType, err := enums.ParseSupportIssueType(req.IssueType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid issue_type"))
			return
		}
		ticket, err := svc.CreateTicket(r.Context(), support.CreateInput{
			UserID:      userID,
			PurchaseID:  req.PurchaseID,
			Subject:     req.Subject,
			Description: req.Description,
			IssueType:   issueType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ticket)
	}
}

func GetSupportTicket(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticketID, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticket, err := svc.GetTicket(r.Context(), ticketID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ticket)
	}
}

// ListSupportTickets pages tickets. Non-admin callers only ever see
// their own, regardless of query parameters.
func ListSupportTickets(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := support.ListParams{
			ActorID:   userID,
			ActorRole: role,
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSupportStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}
		result, err := svc.ListTickets(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminUpdateSupportTicket moves a ticket through its workflow and
// records assignment and resolution notes.
func AdminUpdateSupportTicket(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticketID, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateTicketRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := support.UpdateInput{
			TicketID:        ticketID,
			ActorRole:       role,
			AssignedTo:      req.AssignedTo,
			ResolutionNotes: req.ResolutionNotes,
		}
		if req.Status != nil {
			status, err := enums.ParseSupportStatus(*req.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}
		ticket, err := svc.UpdateTicket(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ticket)
	}
}
