package support

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rechargehub/rechargehub-backend/pkg/config"
	"github.com/rechargehub/rechargehub-backend/pkg/db"
	"github.com/rechargehub/rechargehub-backend/pkg/db/models"
	"github.com/rechargehub/rechargehub-backend/pkg/enums"
	pkgerrors "github.com/rechargehub/rechargehub-backend/pkg/errors"
)

type fakePurchaseFinder struct {
	owners map[uuid.UUID]uuid.UUID
}

func (f *fakePurchaseFinder) GetForUser(_ context.Context, id, userID uuid.UUID) (*models.PlanPurchase, error) {
	owner, ok := f.owners[id]
	if !ok || owner != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.PlanPurchase{ID: id, UserID: userID}, nil
}

type ticketNotification struct {
	userID   uuid.UUID
	ticketID uuid.UUID
	status   string
}

type fakeTicketNotifier struct {
	sent []ticketNotification
}

func (f *fakeTicketNotifier) TicketUpdated(_ context.Context, userID, ticketID uuid.UUID, status string) error {
	f.sent = append(f.sent, ticketNotification{userID: userID, ticketID: ticketID, status: status})
	return nil
}

type supportFixture struct {
	svc       Service
	purchases *fakePurchaseFinder
	notifier  *fakeTicketNotifier
}

func newSupportFixture(t *testing.T) *supportFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", filepath.Join(t.TempDir(), "support.db"))
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.SupportTicket{}))

	purchases := &fakePurchaseFinder{owners: map[uuid.UUID]uuid.UUID{}}
	notifier := &fakeTicketNotifier{}
	svc, err := NewService(NewRepository(client.DB()), purchases, notifier, nil)
	require.NoError(t, err)

	return &supportFixture{svc: svc, purchases: purchases, notifier: notifier}
}

func (f *supportFixture) open(t *testing.T, userID uuid.UUID, subject string) *models.SupportTicket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), CreateInput{
		UserID:      userID,
		Subject:     subject,
		Description: "something went wrong",
		IssueType:   enums.SupportIssueTypeOther,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketWithPurchaseReference(t *testing.T) {
	f := newSupportFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	purchaseID := uuid.New()
	f.purchases.owners[purchaseID] = userID

	ticket, err := f.svc.CreateTicket(ctx, CreateInput{
		UserID:      userID,
		PurchaseID:  &purchaseID,
		Subject:     "Recharge stuck",
		Description: "Money deducted but recharge pending",
		IssueType:   enums.SupportIssueTypeRechargeFailure,
	})
	require.NoError(t, err)
	require.Equal(t, enums.SupportStatusOpen, ticket.Status)
	require.Equal(t, &purchaseID, ticket.PurchaseID)

	// A purchase owned by someone else cannot be referenced.
	stranger := uuid.New()
	_, err = f.svc.CreateTicket(ctx, CreateInput{
		UserID:      stranger,
		PurchaseID:  &purchaseID,
		Subject:     "Not my recharge",
		Description: "attaching someone else's purchase",
		IssueType:   enums.SupportIssueTypeRechargeFailure,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCreateTicketValidation(t *testing.T) {
	f := newSupportFixture(t)
	ctx := context.Background()

	cases := []CreateInput{
		{UserID: uuid.Nil, Subject: "x", Description: "y", IssueType: enums.SupportIssueTypeOther},
		{UserID: uuid.New(), Subject: "  ", Description: "y", IssueType: enums.SupportIssueTypeOther},
		{UserID: uuid.New(), Subject: "x", Description: "", IssueType: enums.SupportIssueTypeOther},
		{UserID: uuid.New(), Subject: "x", Description: "y", IssueType: enums.SupportIssueType("nope")},
	}
	for _, input := range cases {
		_, err := f.svc.CreateTicket(ctx, input)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestGetTicketOwnerScoped(t *testing.T) {
	f := newSupportFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := f.open(t, owner, "Login trouble")

	got, err := f.svc.GetTicket(ctx, ticket.ID, owner, enums.UserRoleClient)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, got.ID)

	_, err = f.svc.GetTicket(ctx, ticket.ID, uuid.New(), enums.UserRoleClient)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	got, err = f.svc.GetTicket(ctx, ticket.ID, uuid.New(), enums.UserRoleAdmin)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, got.ID)
}

func TestListTicketsScopingAndFilter(t *testing.T) {
	f := newSupportFixture(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	f.open(t, alice, "ticket a1")
	a2 := f.open(t, alice, "ticket a2")
	f.open(t, bob, "ticket b1")

	// Owners only see their own tickets.
	result, err := f.svc.ListTickets(ctx, ListParams{ActorID: alice, ActorRole: enums.UserRoleClient, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	// Admins see everything and can filter by status.
	result, err = f.svc.ListTickets(ctx, ListParams{ActorID: uuid.New(), ActorRole: enums.UserRoleAdmin, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	resolved := enums.SupportStatusResolved
	_, err = f.svc.UpdateTicket(ctx, UpdateInput{TicketID: a2.ID, ActorRole: enums.UserRoleAdmin, Status: &resolved})
	require.NoError(t, err)

	result, err = f.svc.ListTickets(ctx, ListParams{
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleAdmin,
		Status:    &resolved,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, a2.ID, result.Items[0].ID)
}

func TestUpdateTicketTransitions(t *testing.T) {
	f := newSupportFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := f.open(t, owner, "slow recharge")

	// Non-admins cannot touch tickets.
	inProgress := enums.SupportStatusInProgress
	_, err := f.svc.UpdateTicket(ctx, UpdateInput{TicketID: ticket.ID, ActorRole: enums.UserRoleRetailer, Status: &inProgress})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	agent := uuid.New()
	notes := "Investigating with the operator"
	updated, err := f.svc.UpdateTicket(ctx, UpdateInput{
		TicketID:        ticket.ID,
		ActorRole:       enums.UserRoleAdmin,
		Status:          &inProgress,
		AssignedTo:      &agent,
		ResolutionNotes: &notes,
	})
	require.NoError(t, err)
	require.Equal(t, enums.SupportStatusInProgress, updated.Status)
	require.Equal(t, &agent, updated.AssignedTo)
	require.Empty(t, f.notifier.sent, "in_progress is not announced")

	// in_progress cannot go back to open.
	open := enums.SupportStatusOpen
	_, err = f.svc.UpdateTicket(ctx, UpdateInput{TicketID: ticket.ID, ActorRole: enums.UserRoleAdmin, Status: &open})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	resolved := enums.SupportStatusResolved
	updated, err = f.svc.UpdateTicket(ctx, UpdateInput{TicketID: ticket.ID, ActorRole: enums.UserRoleAdmin, Status: &resolved})
	require.NoError(t, err)
	require.Equal(t, enums.SupportStatusResolved, updated.Status)
	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, owner, f.notifier.sent[0].userID)
	require.Equal(t, "resolved", f.notifier.sent[0].status)

	closed := enums.SupportStatusClosed
	_, err = f.svc.UpdateTicket(ctx, UpdateInput{TicketID: ticket.ID, ActorRole: enums.UserRoleAdmin, Status: &closed})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 2)

	// Closed is terminal.
	_, err = f.svc.UpdateTicket(ctx, UpdateInput{TicketID: ticket.ID, ActorRole: enums.UserRoleAdmin, Status: &inProgress})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
