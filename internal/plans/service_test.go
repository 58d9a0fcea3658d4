package plans

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
	"github.com/rechargehub/rechargehub-backend/pkg/pagination"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "plans.db"))
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.Provider{}, &models.Plan{}))

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	return svc
}

func seedPlan(t *testing.T, svc Service, providerID uuid.UUID, title, identifier, amount string) *models.Plan {
	t.Helper()
	plan, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		ProviderID:   providerID,
		Title:        title,
		Description:  title + " description",
		ValidityDays: 28,
		Amount:       decimal.RequireFromString(amount),
		Identifier:   identifier,
	})
	require.NoError(t, err)
	return plan
}

func TestProviderLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	provider, err := svc.CreateProvider(ctx, "  Airtel  ")
	require.NoError(t, err)
	require.Equal(t, "Airtel", provider.Title)
	require.True(t, provider.IsActive)

	inactive := false
	updated, err := svc.UpdateProvider(ctx, provider.ID, UpdateProviderInput{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	active, err := svc.ListProviders(ctx, true)
	require.NoError(t, err)
	require.Empty(t, active)

	all, err := svc.ListProviders(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = svc.GetProvider(ctx, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCreatePlanDuplicateIdentifier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	provider, err := svc.CreateProvider(ctx, "Jio")
	require.NoError(t, err)

	seedPlan(t, svc, provider.ID, "Monthly 2GB", "jio-2gb-28d", "299.00")

	_, err = svc.CreatePlan(ctx, CreatePlanInput{
		ProviderID:   provider.ID,
		Title:        "Other",
		Description:  "other",
		ValidityDays: 28,
		Amount:       decimal.RequireFromString("199.00"),
		Identifier:   "jio-2gb-28d",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestCreatePlanUnknownProvider(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		ProviderID:   uuid.New(),
		Title:        "Orphan",
		Description:  "orphan",
		ValidityDays: 28,
		Amount:       decimal.RequireFromString("99.00"),
		Identifier:   "orphan-1",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListPlansFiltersAndOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	airtel, err := svc.CreateProvider(ctx, "Airtel")
	require.NoError(t, err)
	jio, err := svc.CreateProvider(ctx, "Jio")
	require.NoError(t, err)

	seedPlan(t, svc, airtel.ID, "Daily Data", "airtel-daily", "129.00")
	cheap := seedPlan(t, svc, airtel.ID, "Starter", "airtel-starter", "109.00")
	seedPlan(t, svc, jio.ID, "Jio Monthly", "jio-monthly", "239.00")

	inactive := false
	_, err = svc.UpdatePlan(ctx, cheap.ID, UpdatePlanInput{IsActive: &inactive})
	require.NoError(t, err)

	byProvider, _, err := svc.ListPlans(ctx, ListFilter{ProviderID: &airtel.ID}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byProvider, 2)

	activeOnly, _, err := svc.ListPlans(ctx, ListFilter{ProviderID: &airtel.ID, ActiveOnly: true}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	require.Equal(t, "airtel-daily", activeOnly[0].Identifier)
	require.NotNil(t, activeOnly[0].Provider, "provider association should load")

	bySearch, _, err := svc.ListPlans(ctx, ListFilter{Search: "monthly"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, "jio-monthly", bySearch[0].Identifier)

	byAmount, _, err := svc.ListPlans(ctx, ListFilter{OrderBy: "amount"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byAmount, 3)
	require.Equal(t, "airtel-starter", byAmount[0].Identifier)

	_, _, err = svc.ListPlans(ctx, ListFilter{OrderBy: "sneaky; DROP TABLE plans"}, pagination.Params{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListPlansCursorPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	provider, err := svc.CreateProvider(ctx, "Vi")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		seedPlan(t, svc, provider.ID, fmt.Sprintf("Plan %d", i), fmt.Sprintf("vi-plan-%d", i), "149.00")
	}

	first, next, err := svc.ListPlans(ctx, ListFilter{}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotEmpty(t, next)

	second, next, err := svc.ListPlans(ctx, ListFilter{}, pagination.Params{Limit: 3, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Empty(t, next)

	seen := map[uuid.UUID]bool{}
	for _, plan := range append(first, second...) {
		require.False(t, seen[plan.ID], "no plan may appear twice across pages")
		seen[plan.ID] = true
	}
}
