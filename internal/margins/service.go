package margins

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
)

var maxMarginPercentage = decimal.NewFromInt(100)

// UserDirectory resolves the target user so the margin's role rule can be
// enforced. Satisfied by the users repository.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service manages commission margins an admin assigns to distributors and
// retailers.
type Service interface {
	SetMargin(ctx context.Context, input SetMarginInput) (*models.UserMargin, error)
	GetMargin(ctx context.Context, adminID, userID uuid.UUID) (*models.UserMargin, error)
	ListMargins(ctx context.Context, adminID uuid.UUID) ([]MarginEntry, error)
}

// SetMarginInput captures one margin assignment request.
type SetMarginInput struct {
	AdminID          uuid.UUID
	ActorRole        enums.UserRole
	UserID           uuid.UUID
	MarginPercentage decimal.Decimal
}

type service struct {
	repo  Repository
	users UserDirectory
}

// NewService wires a margin service with its repository and user lookup.
func NewService(repo Repository, users UserDirectory) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "margin repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	return &service{repo: repo, users: users}, nil
}

func (s *service) SetMargin(ctx context.Context, input SetMarginInput) (*models.UserMargin, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required to set margins")
	}
	if input.MarginPercentage.IsNegative() || input.MarginPercentage.GreaterThan(maxMarginPercentage) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "margin percentage must be between 0 and 100")
	}

	target, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !target.Role.MarginEligible() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "margins apply to distributors and retailers only")
	}

	margin := &models.UserMargin{
		AdminID:          input.AdminID,
		UserID:           input.UserID,
		MarginPercentage: input.MarginPercentage,
	}
	if err := s.repo.Upsert(ctx, margin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert margin")
	}
	return s.GetMargin(ctx, input.AdminID, input.UserID)
}

func (s *service) GetMargin(ctx context.Context, adminID, userID uuid.UUID) (*models.UserMargin, error) {
	if adminID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id and user id are required")
	}
	margin, err := s.repo.Get(ctx, adminID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "margin not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load margin")
	}
	return margin, nil
}

func (s *service) ListMargins(ctx context.Context, adminID uuid.UUID) ([]MarginEntry, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	entries, err := s.repo.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list margins")
	}
	return entries, nil
}
