package plans

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

// Valid order keys for plan listings.
var planOrderKeys = map[string]bool{
	"":            true,
	"created_at":  true,
	"amount":      true,
	"amount_desc": true,
}

// Service owns the provider and plan catalog.
type Service interface {
	CreateProvider(ctx context.Context, title string) (*models.Provider, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, input UpdateProviderInput) (*models.Provider, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	ListProviders(ctx context.Context, activeOnly bool) ([]models.Provider, error)

	CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*models.Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListPlans(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Plan, string, error)
}

// UpdateProviderInput carries mutable provider fields; nil keeps current.
type UpdateProviderInput struct {
	Title    *string
	IsActive *bool
}

// CreatePlanInput is the admin-facing plan creation request.
type CreatePlanInput struct {
	ProviderID   uuid.UUID
	Title        string
	Description  string
	ValidityDays int
	Amount       decimal.Decimal
	Identifier   string
}

// UpdatePlanInput carries mutable plan fields; nil keeps current.
type UpdatePlanInput struct {
	Title        *string
	Description  *string
	ValidityDays *int
	Amount       *decimal.Decimal
	IsActive     *bool
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plan repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProvider(ctx context.Context, title string) (*models.Provider, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider title is required")
	}
	provider := &models.Provider{Title: title, IsActive: true}
	if err := s.repo.CreateProvider(ctx, provider); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider")
	}
	return provider, nil
}

func (s *service) UpdateProvider(ctx context.Context, id uuid.UUID, input UpdateProviderInput) (*models.Provider, error) {
	if _, err := s.GetProvider(ctx, id); err != nil {
		return nil, err
	}

	values := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider title cannot be empty")
		}
		values["title"] = strings.TrimSpace(*input.Title)
	}
	if input.IsActive != nil {
		values["is_active"] = *input.IsActive
	}

	if err := s.repo.UpdateProvider(ctx, id, values); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update provider")
	}
	return s.GetProvider(ctx, id)
}

func (s *service) GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	provider, err := s.repo.GetProvider(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load provider")
	}
	return provider, nil
}

func (s *service) ListProviders(ctx context.Context, activeOnly bool) ([]models.Provider, error) {
	providers, err := s.repo.ListProviders(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list providers")
	}
	return providers, nil
}

func (s *service) CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error) {
	if err := validatePlanBasics(input.Title, input.Identifier, input.ValidityDays, input.Amount); err != nil {
		return nil, err
	}
	if _, err := s.GetProvider(ctx, input.ProviderID); err != nil {
		return nil, err
	}

	plan := &models.Plan{
		ProviderID:   input.ProviderID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		ValidityDays: input.ValidityDays,
		Amount:       input.Amount,
		Identifier:   strings.TrimSpace(input.Identifier),
		IsActive:     true,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan identifier already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	return s.GetPlan(ctx, plan.ID)
}

func (s *service) UpdatePlan(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*models.Plan, error) {
	if _, err := s.GetPlan(ctx, id); err != nil {
		return nil, err
	}

	values := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan title cannot be empty")
		}
		values["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		values["description"] = strings.TrimSpace(*input.Description)
	}
	if input.ValidityDays != nil {
		if *input.ValidityDays <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity days must be positive")
		}
		values["validity_days"] = *input.ValidityDays
	}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
		}
		values["amount"] = *input.Amount
	}
	if input.IsActive != nil {
		values["is_active"] = *input.IsActive
	}

	if err := s.repo.UpdatePlan(ctx, id, values); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	return s.GetPlan(ctx, id)
}

func (s *service) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	return plan, nil
}

func (s *service) ListPlans(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Plan, string, error) {
	if !planOrderKeys[filter.OrderBy] {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid order_by").
			WithDetails(map[string]any{"allowed": []string{"created_at", "amount", "amount_desc"}})
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListPlans(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		// Amount ordering pages by offsetless re-query, so only the default
		// recency order advertises a cursor.
		if filter.OrderBy == "" || filter.OrderBy == "created_at" {
			last := rows[len(rows)-1]
			next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
	}
	return rows, next, nil
}

func validatePlanBasics(title, identifier string, validityDays int, amount decimal.Decimal) error {
	if strings.TrimSpace(title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan title is required")
	}
	if strings.TrimSpace(identifier) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan identifier is required")
	}
	if validityDays <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validity days must be positive")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}
