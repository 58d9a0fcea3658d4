package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/internal/users"
	pkgAuth "github.com/rechargehub/rechargehub-backend/pkg/auth"
	"github.com/rechargehub/rechargehub-backend/pkg/auth/session"
	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/logger"
	"github.com/rechargehub/rechargehub-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"
const invalidOTPMessage = "invalid or expired code"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RequestOTP(ctx context.Context, req OTPRequest) (*OTPRequestResponse, error)
	VerifyOTP(ctx context.Context, req OTPVerifyRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type cooldownStore interface {
	BeginOTPCooldown(ctx context.Context, phone string, ttl time.Duration) (bool, error)
}

// RegistrationNotifier announces a new account. Satisfied by the
// notifications dispatcher.
type RegistrationNotifier interface {
	UserRegistered(ctx context.Context, user *models.User) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	OTPRepo        OTPRepository
	SessionManager sessionManager
	Cooldowns      cooldownStore
	Notifier       RegistrationNotifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	OTPConfig      config.OTPConfig
	ExposeOTPCode  bool
	Logger         *logger.Logger
}

type service struct {
	users         userRepository
	otps          OTPRepository
	session       sessionManager
	cooldowns     cooldownStore
	notifier      RegistrationNotifier
	jwtCfg        config.JWTConfig
	passwordCfg   config.PasswordConfig
	otpCfg        config.OTPConfig
	exposeOTPCode bool
	logg          *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.OTPRepo == nil {
		return nil, fmt.Errorf("otp repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Cooldowns == nil {
		return nil, fmt.Errorf("cooldown store is required")
	}
	return &service{
		users:         params.UserRepo,
		otps:          params.OTPRepo,
		session:       params.SessionManager,
		cooldowns:     params.Cooldowns,
		notifier:      params.Notifier,
		jwtCfg:        params.JWTConfig,
		passwordCfg:   params.PasswordConfig,
		otpCfg:        params.OTPConfig,
		exposeOTPCode: params.ExposeOTPCode,
		logg:          params.Logger,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         enums.UserRoleClient,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if s.notifier != nil {
		// Welcome notification is best effort; registration already
		// committed, but a dropped delivery still gets logged.
		if err := s.notifier.UserRegistered(ctx, user); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			}), "registration notification failed")
		}
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *service) RequestOTP(ctx context.Context, req OTPRequest) (*OTPRequestResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	started, err := s.cooldowns.BeginOTPCooldown(ctx, phone, s.otpCfg.Cooldown())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "otp cooldown")
	}
	if !started {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "code already sent, retry later").
			WithDetails(map[string]any{"cooldown_seconds": s.otpCfg.CooldownSeconds})
	}

	code, err := security.GenerateOTPCode(s.otpCfg.Digits)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp code")
	}

	now := time.Now().UTC()
	if err := s.otps.Create(ctx, &models.OTPCode{
		Phone:     phone,
		Code:      code,
		ExpiresAt: now.Add(s.otpCfg.TTL),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store otp code")
	}

	resp := &OTPRequestResponse{
		CooldownSeconds: s.otpCfg.CooldownSeconds,
		ExpiresIn:       int(s.otpCfg.TTL.Seconds()),
	}
	if s.exposeOTPCode {
		resp.Code = code
	}
	return resp, nil
}

func (s *service) VerifyOTP(ctx context.Context, req OTPVerifyRequest) (*AuthResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	code := strings.TrimSpace(req.Code)
	if phone == "" || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone and code are required")
	}

	now := time.Now().UTC()
	row, err := s.otps.FindActive(ctx, phone, code, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidOTPMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup otp code")
	}
	if err := s.otps.MarkVerified(ctx, row, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume otp code")
	}

	user, err := s.findOrCreatePhoneUser(ctx, phone)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// findOrCreatePhoneUser backs OTP login for numbers that have never signed
// up: a client account is created on the spot with a random credential.
func (s *service) findOrCreatePhoneUser(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.users.FindByPhone(ctx, phone)
	if err == nil {
		if !user.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user by phone")
	}

	random, err := security.GenerateTempPassword(24)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate placeholder credential")
	}
	hash, err := security.HashPassword(random, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash placeholder credential")
	}

	created, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        placeholderEmail(phone),
		PasswordHash: hash,
		Phone:        &phone,
		Role:         enums.UserRoleClient,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create phone user")
	}

	if s.notifier != nil {
		if err := s.notifier.UserRegistered(ctx, created); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"user_id": created.ID,
				"error":   err.Error(),
			}), "registration notification failed")
		}
	}
	return created, nil
}

// placeholderEmail satisfies the unique, non-null email column for accounts
// that only ever log in by phone.
func placeholderEmail(phone string) string {
	return strings.TrimPrefix(phone, "+") + "@phone.rechargehub.local"
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*AuthResponse, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}
