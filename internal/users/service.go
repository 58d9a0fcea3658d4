package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
	"github.com/rechargehub/rechargehub-backend/pkg/security"
)

const tempPasswordLength = 12

// WalletProvisioner creates the wallet that backs a newly created reseller
// account. Satisfied by the wallet service.
type WalletProvisioner interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

// Service owns account management beyond login: admin CRUD, search, password
// resets, and self-service profile updates.
type Service interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserDTO) (*UserDTO, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) error
	ResetPassword(ctx context.Context, id uuid.UUID) (string, error)
	SearchUsers(ctx context.Context, filter SearchFilter, params pagination.Params) ([]UserDTO, string, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

// CreateUserInput is the admin-facing creation request; the password is
// hashed inside the service.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Role      enums.UserRole
}

// UpdateProfileInput limits self-service edits to display fields.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

type service struct {
	repo        *Repository
	wallets     WalletProvisioner
	passwordCfg config.PasswordConfig
}

// NewService wires a users service with its repository and wallet provisioner.
func NewService(repo *Repository, wallets WalletProvisioner, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if wallets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet provisioner required")
	}
	return &service{repo: repo, wallets: wallets, passwordCfg: passwordCfg}, nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleClient
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email or phone already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	// Resellers transact from a wallet, so provision it up front instead of
	// waiting for their first credit.
	if role.MarginEligible() {
		if _, err := s.wallets.GetOrCreateWallet(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	return FromModel(user), nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserDTO) (*UserDTO, error) {
	if _, err := s.findUser(ctx, id); err != nil {
		return nil, err
	}

	values := map[string]any{}
	if input.FirstName != nil {
		values["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		values["last_name"] = *input.LastName
	}
	if input.Phone != nil {
		values["phone"] = *input.Phone
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		values["role"] = *input.Role
	}
	if input.IsActive != nil {
		values["is_active"] = *input.IsActive
	}

	if err := s.repo.Update(ctx, id, values); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return s.GetUser(ctx, id)
}

func (s *service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate user")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.findUser(ctx, id); err != nil {
		return "", err
	}

	temp, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate temp password")
	}
	hash, err := security.HashPassword(temp, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hash temp password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store temp password")
	}
	return temp, nil
}

func (s *service) SearchUsers(ctx context.Context, filter SearchFilter, params pagination.Params) ([]UserDTO, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.Search(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search users")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, next, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	return s.UpdateUser(ctx, id, UpdateUserDTO{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	})
}

func (s *service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
