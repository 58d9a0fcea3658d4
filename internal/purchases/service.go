package purchases

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

const transactionIDPrefix = "TXN-"

var historyOrderKeys = map[string]bool{
	"":               true,
	"created_at":     true,
	"amount":         true,
	"payment_status": true,
}

// PlanCatalog resolves purchasable plans. Satisfied by the plans service.
type PlanCatalog interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

// RechargeNotifier announces the outcome of a recharge attempt. Satisfied by
// the notifications dispatcher.
type RechargeNotifier interface {
	RechargeCompleted(ctx context.Context, purchase *models.PlanPurchase, success bool) error
}

// PurchaseInput starts a recharge for the given plan and phone number.
type PurchaseInput struct {
	PlanID        uuid.UUID
	PhoneNumber   string
	PaymentMethod enums.PaymentMethod
}

// Service owns the recharge purchase flow: charge, record, notify.
type Service interface {
	Purchase(ctx context.Context, userID uuid.UUID, input PurchaseInput) (*models.PlanPurchase, error)
	RetryPayment(ctx context.Context, userID, purchaseID uuid.UUID) (*models.PlanPurchase, error)
	History(ctx context.Context, userID uuid.UUID, filter HistoryFilter, params pagination.Params) ([]models.PlanPurchase, string, error)
	Get(ctx context.Context, userID, purchaseID uuid.UUID) (*models.PlanPurchase, error)
}

type service struct {
	repo      Repository
	catalog   PlanCatalog
	processor Processor
	notifier  RechargeNotifier
	logg      *logger.Logger
}

// ServiceParams bundles the purchase service dependencies.
type ServiceParams struct {
	Repo      Repository
	Catalog   PlanCatalog
	Processor Processor
	Notifier  RechargeNotifier
	Logger    *logger.Logger
}

// NewService wires the purchase service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "purchase repository required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plan catalog required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment processor required")
	}
	return &service{
		repo:      params.Repo,
		catalog:   params.Catalog,
		processor: params.Processor,
		notifier:  params.Notifier,
		logg:      params.Logger,
	}, nil
}

func (s *service) Purchase(ctx context.Context, userID uuid.UUID, input PurchaseInput) (*models.PlanPurchase, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	phone := strings.TrimSpace(input.PhoneNumber)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodOnline
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	plan, err := s.catalog.GetPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	purchase := &models.PlanPurchase{
		UserID:        userID,
		PlanID:        plan.ID,
		Amount:        plan.Amount,
		PhoneNumber:   phone,
		PaymentMethod: method,
		PaymentStatus: enums.PurchaseStatusPending,
		TransactionID: newTransactionID(),
	}
	if err := s.repo.Create(ctx, purchase); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
	}

	return s.charge(ctx, purchase, false)
}

func (s *service) RetryPayment(ctx context.Context, userID, purchaseID uuid.UUID) (*models.PlanPurchase, error) {
	purchase, err := s.Get(ctx, userID, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.PaymentStatus != enums.PurchaseStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed purchases can be retried").
			WithDetails(map[string]any{"payment_status": purchase.PaymentStatus.String()})
	}
	return s.charge(ctx, purchase, true)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, filter HistoryFilter, params pagination.Params) ([]models.PlanPurchase, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !historyOrderKeys[filter.OrderBy] {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid order_by").
			WithDetails(map[string]any{"allowed": []string{"created_at", "amount", "payment_status"}})
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.History(ctx, userID, filter, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase history")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		if filter.OrderBy == "" || filter.OrderBy == "created_at" {
			last := rows[len(rows)-1]
			next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
	}
	return rows, next, nil
}

func (s *service) Get(ctx context.Context, userID, purchaseID uuid.UUID) (*models.PlanPurchase, error) {
	if userID == uuid.Nil || purchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and purchase id are required")
	}
	purchase, err := s.repo.GetForUser(ctx, purchaseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return purchase, nil
}

// charge runs the processor and records the outcome on the purchase row.
func (s *service) charge(ctx context.Context, purchase *models.PlanPurchase, retry bool) (*models.PlanPurchase, error) {
	result, err := s.processor.Process(ctx, ProcessRequest{
		TransactionID: purchase.TransactionID,
		Amount:        purchase.Amount,
		PhoneNumber:   purchase.PhoneNumber,
		Retry:         retry,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "process payment")
	}

	values := map[string]any{
		"gateway_response": result.Response,
	}
	if result.Success {
		now := time.Now().UTC()
		values["payment_status"] = enums.PurchaseStatusSuccess
		values["completed_at"] = now
	} else {
		values["payment_status"] = enums.PurchaseStatusFailed
	}

	if err := s.repo.Update(ctx, purchase.ID, values); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment outcome")
	}

	updated, err := s.repo.Get(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload purchase")
	}

	if s.notifier != nil {
		// Outcome notifications are best effort; the purchase row is the
		// source of truth, but a dropped delivery still gets logged.
		if err := s.notifier.RechargeCompleted(ctx, updated, result.Success); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"purchase_id": updated.ID,
				"error":       err.Error(),
			}), "recharge outcome notification failed")
		}
	}
	return updated, nil
}

func newTransactionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return transactionIDPrefix + hex[:10]
}
