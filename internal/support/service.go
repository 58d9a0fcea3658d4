package support

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// allowedTransitions maps a ticket status to the statuses it may move to.
// Closed is terminal; resolved tickets can be reopened into in_progress.
var allowedTransitions = map[enums.SupportStatus][]enums.SupportStatus{
	enums.SupportStatusOpen:       {enums.SupportStatusInProgress, enums.SupportStatusResolved, enums.SupportStatusClosed},
	enums.SupportStatusInProgress: {enums.SupportStatusResolved, enums.SupportStatusClosed},
	enums.SupportStatusResolved:   {enums.SupportStatusInProgress, enums.SupportStatusClosed},
}

// PurchaseFinder resolves a purchase owned by a specific user.
type PurchaseFinder interface {
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PlanPurchase, error)
}

// TicketNotifier tells the ticket owner about a status change.
type TicketNotifier interface {
	TicketUpdated(ctx context.Context, userID, ticketID uuid.UUID, status string) error
}

// CreateInput opens a new ticket.
type CreateInput struct {
	UserID      uuid.UUID
	PurchaseID  *uuid.UUID
	Subject     string
	Description string
	IssueType   enums.SupportIssueType
}

// UpdateInput carries an admin's changes to a ticket.
type UpdateInput struct {
	TicketID        uuid.UUID
	ActorRole       enums.UserRole
	Status          *enums.SupportStatus
	AssignedTo      *uuid.UUID
	ResolutionNotes *string
}

// ListParams configures ticket listings.
type ListParams struct {
	ActorID   uuid.UUID
	ActorRole enums.UserRole
	Status    *enums.SupportStatus
	Limit     int
	Cursor    string
}

// ListResult wraps tickets and the cursor for the next page.
type ListResult struct {
	Items  []models.SupportTicket `json:"items"`
	Cursor string                 `json:"cursor"`
}

// Service defines support ticket operations.
type Service interface {
	CreateTicket(ctx context.Context, input CreateInput) (*models.SupportTicket, error)
	GetTicket(ctx context.Context, id, actorID uuid.UUID, actorRole enums.UserRole) (*models.SupportTicket, error)
	ListTickets(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateTicket(ctx context.Context, input UpdateInput) (*models.SupportTicket, error)
}

type service struct {
	repo      Repository
	purchases PurchaseFinder
	notifier  TicketNotifier
	logg      *logger.Logger
}

// NewService wires the support ticket service. The notifier may be nil for
// setups that do not deliver ticket notifications.
func NewService(repo Repository, purchases PurchaseFinder, notifier TicketNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "support repository required")
	}
	if purchases == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "purchase finder required")
	}
	return &service{repo: repo, purchases: purchases, notifier: notifier, logg: logg}, nil
}

func (s *service) CreateTicket(ctx context.Context, input CreateInput) (*models.SupportTicket, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if !input.IssueType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid issue type")
	}

	// A referenced purchase must belong to the reporter.
	if input.PurchaseID != nil {
		if _, err := s.purchases.GetForUser(ctx, *input.PurchaseID, input.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify purchase")
		}
	}

	ticket := &models.SupportTicket{
		UserID:      input.UserID,
		PurchaseID:  input.PurchaseID,
		Subject:     subject,
		Description: description,
		IssueType:   input.IssueType,
		Status:      enums.SupportStatusOpen,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create support ticket")
	}
	return ticket, nil
}

func (s *service) GetTicket(ctx context.Context, id, actorID uuid.UUID, actorRole enums.UserRole) (*models.SupportTicket, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	ticket, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support ticket")
	}
	if actorRole != enums.UserRoleAdmin && ticket.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return ticket, nil
}

func (s *service) ListTickets(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	filter := ListFilter{Status: params.Status}
	if params.ActorRole != enums.UserRoleAdmin {
		filter.UserID = params.ActorID
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list support tickets")
	}

	next := ""
	if len(rows) > limit {
		overflow := rows[limit]
		rows = rows[:limit]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: overflow.CreatedAt, ID: overflow.ID})
	}
	return &ListResult{Items: rows, Cursor: next}, nil
}

func (s *service) UpdateTicket(ctx context.Context, input UpdateInput) (*models.SupportTicket, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can update tickets")
	}
	if input.TicketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	ticket, err := s.repo.Get(ctx, input.TicketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support ticket")
	}

	values := map[string]any{}
	statusChanged := false
	if input.Status != nil && *input.Status != ticket.Status {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		if ticket.Status.Terminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is closed").
				WithDetails(map[string]any{"status": ticket.Status.String()})
		}
		if !transitionAllowed(ticket.Status, *input.Status) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
				WithDetails(map[string]any{
					"from": ticket.Status.String(),
					"to":   input.Status.String(),
				})
		}
		values["status"] = *input.Status
		statusChanged = true
	}
	if input.AssignedTo != nil {
		values["assigned_to"] = *input.AssignedTo
	}
	if input.ResolutionNotes != nil {
		values["resolution_notes"] = strings.TrimSpace(*input.ResolutionNotes)
	}
	if len(values) == 0 {
		return ticket, nil
	}
	values["updated_at"] = time.Now().UTC()

	if err := s.repo.Update(ctx, ticket.ID, values); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update support ticket")
	}

	updated, err := s.repo.Get(ctx, ticket.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload support ticket")
	}

	// The owner hears about resolutions; delivery failures never fail the
	// update itself but are logged.
	if statusChanged && s.notifier != nil &&
		(updated.Status == enums.SupportStatusResolved || updated.Status == enums.SupportStatusClosed) {
		if err := s.notifier.TicketUpdated(ctx, updated.UserID, updated.ID, updated.Status.String()); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"ticket_id": updated.ID,
				"error":     err.Error(),
			}), "ticket status notification failed")
		}
	}
	return updated, nil
}

func transitionAllowed(from, to enums.SupportStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
