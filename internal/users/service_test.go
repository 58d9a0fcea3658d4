package users

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
	"github.com/rechargehub/rechargehub-backend/pkg/security"
)

// testPasswordCfg keeps argon cheap so the suite stays fast.
var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

type fakeWalletProvisioner struct {
	provisioned []uuid.UUID
}

func (f *fakeWalletProvisioner) GetOrCreateWallet(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	f.provisioned = append(f.provisioned, userID)
	return &models.Wallet{ID: uuid.New(), UserID: userID}, nil
}

func newTestService(t *testing.T) (Service, *Repository, *fakeWalletProvisioner) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "users.db"))
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.User{}))

	repo := NewRepository(client.DB())
	wallets := &fakeWalletProvisioner{}
	svc, err := NewService(repo, wallets, testPasswordCfg)
	require.NoError(t, err)
	return svc, repo, wallets
}

func TestCreateUserProvisionsResellerWallet(t *testing.T) {
	svc, repo, wallets := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserInput{
		Email:     "Retailer@Example.com",
		Password:  "s3cret-pass",
		FirstName: "Ravi",
		LastName:  "Kumar",
		Role:      enums.UserRoleRetailer,
	})
	require.NoError(t, err)
	require.Equal(t, "retailer@example.com", created.Email)
	require.Equal(t, enums.UserRoleRetailer, created.Role)
	require.Equal(t, []uuid.UUID{created.ID}, wallets.provisioned)

	stored, err := repo.FindByEmail(ctx, "retailer@example.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("s3cret-pass", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok, "stored hash must verify the original password")
}

func TestCreateUserClientSkipsWallet(t *testing.T) {
	svc, _, wallets := newTestService(t)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "client@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleClient, created.Role)
	require.Empty(t, wallets.provisioned)
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Email: "dup@example.com", Password: "pw-one-23"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "dup@example.com", Password: "pw-two-23"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestResetPasswordRotatesCredential(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserInput{Email: "reset@example.com", Password: "original-pw"})
	require.NoError(t, err)

	temp, err := svc.ResetPassword(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, temp, tempPasswordLength)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)

	ok, err := security.VerifyPassword(temp, stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("original-pw", stored.PasswordHash)
	require.NoError(t, err)
	require.False(t, ok, "old password must stop working")
}

func TestUpdateAndDeactivateUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserInput{Email: "edit@example.com", Password: "original-pw"})
	require.NoError(t, err)

	newName := "Asha"
	role := enums.UserRoleDistributor
	updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserDTO{FirstName: &newName, Role: &role})
	require.NoError(t, err)
	require.Equal(t, "Asha", updated.FirstName)
	require.Equal(t, enums.UserRoleDistributor, updated.Role)

	require.NoError(t, svc.DeactivateUser(ctx, created.ID))
	after, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, after.IsActive)

	err = svc.DeactivateUser(ctx, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSearchUsersFiltersAndPaginates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateUser(ctx, CreateUserInput{
			Email:     fmt.Sprintf("shop%d@example.com", i),
			Password:  "original-pw",
			FirstName: "Shop",
			Role:      enums.UserRoleRetailer,
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateUser(ctx, CreateUserInput{
		Email:    "someone@else.com",
		Password: "original-pw",
	})
	require.NoError(t, err)

	role := enums.UserRoleRetailer
	page, next, err := svc.SearchUsers(ctx, SearchFilter{Role: &role}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	rest, next, err := svc.SearchUsers(ctx, SearchFilter{Role: &role}, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Empty(t, next)

	byQuery, _, err := svc.SearchUsers(ctx, SearchFilter{Query: "SHOP1"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	require.Equal(t, "shop1@example.com", byQuery[0].Email)
}
